package todo

import (
	"fmt"
	"strings"
)

// Todo is one task. ID is assigned by the API; zero means not yet created.
type Todo struct {
	Description string `json:"description"`
	AssignedTo  string `json:"assignedTo,omitempty"`
	ID          int    `json:"id,omitempty"`
	Done        bool   `json:"done"`
}

// Person is someone a todo can be assigned to.
type Person struct {
	Name string `json:"name"`
}

// DoneFilter selects todos by completion.
type DoneFilter string

const (
	// All matches every todo.
	All DoneFilter = "all"
	// Done matches completed todos.
	Done DoneFilter = "done"
	// Ongoing matches todos not yet completed.
	Ongoing DoneFilter = "ongoing"
)

// ParseDoneFilter parses "all", "done" or "ongoing". An empty string is All.
func ParseDoneFilter(s string) (DoneFilter, error) {
	switch f := DoneFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return All, nil
	case All, Done, Ongoing:
		return f, nil
	default:
		return "", fmt.Errorf("todo: unknown done filter %q (want all, done or ongoing)", s)
	}
}

// Filter narrows a todo list by completion and assignee. The zero Filter
// matches everything.
type Filter struct {
	Done   DoneFilter
	Person string
}

// Matches reports whether t passes both the done and the person filter.
func (f Filter) Matches(t Todo) bool {
	return f.matchesDone(t) && f.matchesPerson(t)
}

func (f Filter) matchesDone(t Todo) bool {
	switch f.Done {
	case Done:
		return t.Done
	case Ongoing:
		return !t.Done
	default:
		return true
	}
}

func (f Filter) matchesPerson(t Todo) bool {
	return f.Person == "" || t.AssignedTo == f.Person
}

// Apply returns the todos matching f, preserving order.
func (f Filter) Apply(todos []Todo) []Todo {
	out := make([]Todo, 0, len(todos))

	for _, t := range todos {
		if f.Matches(t) {
			out = append(out, t)
		}
	}

	return out
}
