package todo

import (
	"context"
	"sync"
)

// API is the subset of [Client] a Board needs.
type API interface {
	ListTodos(ctx context.Context) ([]Todo, error)
	ListPeople(ctx context.Context) ([]Person, error)
	CreateTodo(ctx context.Context, t Todo) (Todo, error)
	UpdateTodo(ctx context.Context, t Todo) (Todo, error)
	DeleteTodo(ctx context.Context, id int) error
}

// Board is the local view of the todo list. Each action calls the API and,
// on success, applies the result to the local state; on failure the state is
// left unchanged and the single terminal error is returned to the caller.
// Board is safe for concurrent use.
type Board struct {
	api    API
	todos  []Todo
	people []Person
	filter Filter
	mu     sync.RWMutex
}

// NewBoard creates an empty Board backed by api.
func NewBoard(api API) *Board {
	return &Board{api: api}
}

// Refresh reloads people and todos. The people list is fetched first; if it
// fails the todos are still fetched and the first error is returned.
func (b *Board) Refresh(ctx context.Context) error {
	people, peopleErr := b.api.ListPeople(ctx)
	todos, todosErr := b.api.ListTodos(ctx)

	b.mu.Lock()
	if peopleErr == nil {
		b.people = people
	}

	if todosErr == nil {
		b.todos = todos
	}
	b.mu.Unlock()

	if peopleErr != nil {
		return peopleErr
	}

	return todosErr
}

// Save creates t when it has no ID and updates it otherwise.
func (b *Board) Save(ctx context.Context, t Todo) (Todo, error) {
	if t.ID == 0 {
		return b.Create(ctx, t)
	}

	return b.Update(ctx, t)
}

// Create adds t through the API and appends the stored todo.
func (b *Board) Create(ctx context.Context, t Todo) (Todo, error) {
	created, err := b.api.CreateTodo(ctx, t)
	if err != nil {
		return Todo{}, err
	}

	b.mu.Lock()
	b.todos = append(b.todos, created)
	b.mu.Unlock()

	return created, nil
}

// Update patches t through the API and replaces the local todo with the same
// ID.
func (b *Board) Update(ctx context.Context, t Todo) (Todo, error) {
	updated, err := b.api.UpdateTodo(ctx, t)
	if err != nil {
		return Todo{}, err
	}

	if updated.ID != t.ID {
		updated = t
	}

	b.mu.Lock()
	for i := range b.todos {
		if b.todos[i].ID == t.ID {
			b.todos[i] = updated
		}
	}
	b.mu.Unlock()

	return updated, nil
}

// Delete removes the todo with id through the API and drops it locally.
func (b *Board) Delete(ctx context.Context, id int) error {
	if err := b.api.DeleteTodo(ctx, id); err != nil {
		return err
	}

	b.mu.Lock()
	kept := b.todos[:0:0]
	for _, t := range b.todos {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	b.todos = kept
	b.mu.Unlock()

	return nil
}

// SetFilter replaces the active filter.
func (b *Board) SetFilter(f Filter) {
	b.mu.Lock()
	b.filter = f
	b.mu.Unlock()
}

// Todo returns the local todo with id.
func (b *Board) Todo(id int) (Todo, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, t := range b.todos {
		if t.ID == id {
			return t, true
		}
	}

	return Todo{}, false
}

// Todos returns a copy of every local todo.
func (b *Board) Todos() []Todo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]Todo(nil), b.todos...)
}

// People returns a copy of the known people.
func (b *Board) People() []Person {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]Person(nil), b.people...)
}

// Filtered returns the local todos matching the active filter.
func (b *Board) Filtered() []Todo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.filter.Apply(b.todos)
}
