package todo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/byte4ever/failover/todo"
)

// fakeAPI is an in-memory todo.API with injectable errors.
type fakeAPI struct {
	todos     []todo.Todo
	people    []todo.Person
	nextID    int
	errPeople error
	errTodos  error
	errWrite  error

	// emptyUpdate makes UpdateTodo answer like a 204.
	emptyUpdate bool
}

func (f *fakeAPI) ListTodos(context.Context) ([]todo.Todo, error) {
	if f.errTodos != nil {
		return nil, f.errTodos
	}

	return append([]todo.Todo(nil), f.todos...), nil
}

func (f *fakeAPI) ListPeople(context.Context) ([]todo.Person, error) {
	if f.errPeople != nil {
		return nil, f.errPeople
	}

	return append([]todo.Person(nil), f.people...), nil
}

func (f *fakeAPI) CreateTodo(_ context.Context, t todo.Todo) (todo.Todo, error) {
	if f.errWrite != nil {
		return todo.Todo{}, f.errWrite
	}

	f.nextID++
	t.ID = f.nextID
	f.todos = append(f.todos, t)

	return t, nil
}

func (f *fakeAPI) UpdateTodo(_ context.Context, t todo.Todo) (todo.Todo, error) {
	if f.errWrite != nil {
		return todo.Todo{}, f.errWrite
	}

	if f.emptyUpdate {
		return todo.Todo{}, nil
	}

	return t, nil
}

func (f *fakeAPI) DeleteTodo(context.Context, int) error {
	return f.errWrite
}

func seededAPI() *fakeAPI {
	return &fakeAPI{
		todos: []todo.Todo{
			{ID: 1, Description: "groceries", AssignedTo: "Ada"},
			{ID: 2, Description: "taxes", Done: true},
		},
		people: []todo.Person{{Name: "Ada"}, {Name: "Grace"}},
		nextID: 2,
	}
}

func TestBoardRefresh(t *testing.T) {
	t.Parallel()

	b := todo.NewBoard(seededAPI())

	require.NoError(t, b.Refresh(context.Background()))
	require.Len(t, b.Todos(), 2)
	require.Equal(t, []todo.Person{{Name: "Ada"}, {Name: "Grace"}}, b.People())
}

func TestBoardRefreshReportsFirstError(t *testing.T) {
	t.Parallel()

	api := seededAPI()
	api.errPeople = errors.New("people down")
	api.errTodos = errors.New("todos down")

	b := todo.NewBoard(api)

	err := b.Refresh(context.Background())
	require.ErrorIs(t, err, api.errPeople)
	require.Empty(t, b.Todos())
}

func TestBoardRefreshKeepsTodosWhenPeopleFail(t *testing.T) {
	t.Parallel()

	api := seededAPI()
	api.errPeople = errors.New("people down")

	b := todo.NewBoard(api)

	require.Error(t, b.Refresh(context.Background()))
	require.Len(t, b.Todos(), 2)
}

func TestBoardCreateAppends(t *testing.T) {
	t.Parallel()

	b := todo.NewBoard(seededAPI())
	require.NoError(t, b.Refresh(context.Background()))

	created, err := b.Create(context.Background(), todo.Todo{Description: "laundry"})
	require.NoError(t, err)
	require.Equal(t, 3, created.ID)

	todos := b.Todos()
	require.Len(t, todos, 3)
	require.Equal(t, created, todos[2])
}

func TestBoardUpdateReplacesByID(t *testing.T) {
	t.Parallel()

	b := todo.NewBoard(seededAPI())
	require.NoError(t, b.Refresh(context.Background()))

	_, err := b.Update(context.Background(), todo.Todo{ID: 1, Description: "groceries", Done: true})
	require.NoError(t, err)

	got, ok := b.Todo(1)
	require.True(t, ok)
	require.True(t, got.Done)
	require.Empty(t, got.AssignedTo)
}

func TestBoardUpdateWithoutStoredVersionKeepsSubmitted(t *testing.T) {
	t.Parallel()

	api := seededAPI()
	api.emptyUpdate = true

	b := todo.NewBoard(api)
	require.NoError(t, b.Refresh(context.Background()))

	want := todo.Todo{ID: 1, Description: "groceries", Done: true}

	got, err := b.Update(context.Background(), want)
	require.NoError(t, err)
	require.Equal(t, want, got)

	stored, ok := b.Todo(1)
	require.True(t, ok)
	require.Equal(t, want, stored)
	require.Len(t, b.Todos(), 2)
}

func TestBoardDeleteRemovesByID(t *testing.T) {
	t.Parallel()

	b := todo.NewBoard(seededAPI())
	require.NoError(t, b.Refresh(context.Background()))

	require.NoError(t, b.Delete(context.Background(), 1))

	_, ok := b.Todo(1)
	require.False(t, ok)
	require.Len(t, b.Todos(), 1)
}

func TestBoardSaveDispatches(t *testing.T) {
	t.Parallel()

	api := seededAPI()
	b := todo.NewBoard(api)
	require.NoError(t, b.Refresh(context.Background()))

	created, err := b.Save(context.Background(), todo.Todo{Description: "new"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	created.Done = true

	updated, err := b.Save(context.Background(), created)
	require.NoError(t, err)
	require.True(t, updated.Done)
	require.Len(t, b.Todos(), 3)
}

func TestBoardFailedWriteLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	api := seededAPI()
	b := todo.NewBoard(api)
	require.NoError(t, b.Refresh(context.Background()))

	api.errWrite = errors.New("all candidates failed")
	before := b.Todos()

	_, err := b.Create(context.Background(), todo.Todo{Description: "x"})
	require.ErrorIs(t, err, api.errWrite)

	_, err = b.Update(context.Background(), todo.Todo{ID: 1, Done: true})
	require.ErrorIs(t, err, api.errWrite)

	require.ErrorIs(t, b.Delete(context.Background(), 1), api.errWrite)
	require.Equal(t, before, b.Todos())
}

func TestBoardFiltered(t *testing.T) {
	t.Parallel()

	b := todo.NewBoard(seededAPI())
	require.NoError(t, b.Refresh(context.Background()))

	b.SetFilter(todo.Filter{Done: todo.Ongoing})
	require.Equal(t, []todo.Todo{{ID: 1, Description: "groceries", AssignedTo: "Ada"}}, b.Filtered())

	b.SetFilter(todo.Filter{Person: "Grace"})
	require.Empty(t, b.Filtered())
}

func TestBoardTodosIsCopy(t *testing.T) {
	t.Parallel()

	b := todo.NewBoard(seededAPI())
	require.NoError(t, b.Refresh(context.Background()))

	todos := b.Todos()
	todos[0].Description = "mutated"

	got, _ := b.Todo(1)
	require.Equal(t, "groceries", got.Description)
}
