package todo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/failover"
	"github.com/byte4ever/failover/httpx"
)

// Resource paths relative to a candidate base address.
const (
	todosPath  = "/todos"
	peoplePath = "/people"
)

// ErrMissingID is returned when updating or deleting a todo without an ID.
var ErrMissingID = errors.New("todo: missing id")

// Client talks to the todo API through one failover strategy.
type Client struct {
	strategy *failover.Strategy
	http     *httpx.Client
	stale    *failover.StaleCache[string, []byte]
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithStaleReads serves the last successfully fetched todo and people lists
// from sc when every candidate fails. Writes are never served stale.
func WithStaleReads(sc *failover.StaleCache[string, []byte]) ClientOption {
	return func(c *Client) {
		c.stale = sc
	}
}

// NewClient creates a Client. A nil hc uses an httpx client with default
// settings.
func NewClient(strategy *failover.Strategy, hc *httpx.Client, opts ...ClientOption) *Client {
	if hc == nil {
		hc = httpx.NewClient(nil, nil)
	}

	c := &Client{strategy: strategy, http: hc}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListTodos fetches all todos.
func (c *Client) ListTodos(ctx context.Context) ([]Todo, error) {
	var todos []Todo
	if err := c.list(ctx, todosPath, &todos); err != nil {
		return nil, fmt.Errorf("todo: list todos: %w", err)
	}

	return todos, nil
}

// ListPeople fetches everyone todos can be assigned to.
func (c *Client) ListPeople(ctx context.Context) ([]Person, error) {
	var people []Person
	if err := c.list(ctx, peoplePath, &people); err != nil {
		return nil, fmt.Errorf("todo: list people: %w", err)
	}

	return people, nil
}

// CreateTodo creates t and returns it as stored by the API, ID included.
func (c *Client) CreateTodo(ctx context.Context, t Todo) (Todo, error) {
	created, err := failover.Execute(ctx, c.strategy,
		httpx.JSON[Todo](c.http, http.MethodPost, todosPath, t))
	if err != nil {
		return Todo{}, fmt.Errorf("todo: create: %w", err)
	}

	c.invalidate(todosPath)

	return created, nil
}

// UpdateTodo patches the todo with t.ID and returns the stored version, or t
// itself when the API answers without a body.
func (c *Client) UpdateTodo(ctx context.Context, t Todo) (Todo, error) {
	if t.ID == 0 {
		return Todo{}, ErrMissingID
	}

	updated, err := failover.Execute(ctx, c.strategy,
		httpx.JSON[Todo](c.http, http.MethodPatch, itemPath(t.ID), t))
	if err != nil {
		return Todo{}, fmt.Errorf("todo: update %d: %w", t.ID, err)
	}

	c.invalidate(todosPath)

	// Some APIs answer a PATCH with 204 and no body.
	if updated.ID == 0 {
		return t, nil
	}

	return updated, nil
}

// DeleteTodo deletes the todo with the given id.
func (c *Client) DeleteTodo(ctx context.Context, id int) error {
	if id == 0 {
		return ErrMissingID
	}

	_, err := failover.Execute(ctx, c.strategy,
		httpx.Request(c.http, http.MethodDelete, itemPath(id), nil))
	if err != nil {
		return fmt.Errorf("todo: delete %d: %w", id, err)
	}

	c.invalidate(todosPath)

	return nil
}

// list fetches path as raw JSON, through the stale cache when configured,
// and decodes it into out.
func (c *Client) list(ctx context.Context, path string, out any) error {
	fetch := func(ctx context.Context, path string) ([]byte, error) {
		resp, err := failover.Execute(ctx, c.strategy,
			httpx.Request(c.http, http.MethodGet, path, nil))
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped by caller
		}

		return resp.Body, nil
	}

	var (
		raw []byte
		err error
	)

	if c.stale != nil {
		raw, err = c.stale.Do(ctx, path, fetch)
	} else {
		raw, err = fetch(ctx, path)
	}

	if err != nil {
		return err
	}

	if err = json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	return nil
}

func (c *Client) invalidate(path string) {
	if c.stale != nil {
		c.stale.Invalidate(path)
	}
}

func itemPath(id int) string {
	return todosPath + "/" + strconv.Itoa(id)
}
