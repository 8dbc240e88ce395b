// Package app owns the task collection and keeps it in step with the remote API.
//
// Every operation succeeds from the caller's point of view: when the API call
// fails the error is logged and the change is applied locally instead. Failed
// writes are remembered so Reconcile can replay them later.
package app

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/Makepad-fr/tada/internal/model"
)

// API is the remote side of the controller. *api.Client implements it.
type API interface {
	List(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, task model.Task) (model.Task, error)
	Delete(ctx context.Context, id int64) error
	Update(ctx context.Context, id int64, task model.Task) (model.Task, error)
}

// Controller is the single owner of the in-memory task list.
type Controller struct {
	api       API
	logger    *log.Logger
	now       func() time.Time
	reconcile bool

	mu      sync.Mutex
	tasks   []model.Task
	deletes map[int64]struct{} // remote deletes that failed
	loadErr error

	loads singleflight.Group
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger failures are reported to.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock overrides the clock used for temporary ids.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithReconcile makes Refresh replay failed writes before fetching.
func WithReconcile(enabled bool) Option {
	return func(c *Controller) { c.reconcile = enabled }
}

// New returns a controller with an empty task list.
func New(api API, opts ...Option) *Controller {
	c := &Controller{
		api:     api,
		logger:  log.New(io.Discard),
		now:     time.Now,
		tasks:   []model.Task{},
		deletes: map[int64]struct{}{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tasks returns a copy of the collection in display order.
func (c *Controller) Tasks() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Task{}, c.tasks...)
}

// Unsynced counts tasks and deletes the server has not confirmed.
func (c *Controller) Unsynced() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.deletes)
	for _, t := range c.tasks {
		if t.Sync != model.Synced {
			n++
		}
	}
	return n
}

// Load replaces the collection with the server's list. On failure the
// collection is emptied. Concurrent calls share one request.
func (c *Controller) Load(ctx context.Context) {
	c.loads.Do("load", func() (any, error) {
		tasks, err := c.api.List(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.loadErr = err
		if err != nil {
			c.logger.Error("could not fetch tasks", "err", err)
			c.tasks = []model.Task{}
			return nil, nil
		}
		c.tasks = dedupe(tasks)
		return nil, nil
	})
}

// LoadErr returns the error from the most recent Load, if any.
func (c *Controller) LoadErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// Add creates a task titled title. If the API rejects or cannot be reached,
// the task is kept locally under a timestamp id. The stored task is returned.
func (c *Controller) Add(ctx context.Context, title string) model.Task {
	task := model.Task{Title: title, Completed: false}
	created, err := c.api.Create(ctx, task)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.Error("could not add task via API, adding locally", "title", title, "err", err)
		task.ID = c.tempID()
		task.Sync = model.Local
		c.tasks = append(c.tasks, task)
		return task
	}

	created.Sync = model.Synced
	if i := model.Index(c.tasks, created.ID); i >= 0 {
		c.tasks[i] = created
	} else {
		c.tasks = append(c.tasks, created)
	}
	return created
}

// Delete removes the task with id, whatever the API answers.
func (c *Controller) Delete(ctx context.Context, id int64) {
	c.mu.Lock()
	i := model.Index(c.tasks, id)
	known := i >= 0 && c.tasks[i].Sync != model.Local
	c.mu.Unlock()

	err := c.api.Delete(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.Error("could not delete task via API, removing locally", "id", id, "err", err)
		if known {
			c.deletes[id] = struct{}{}
		}
	}
	c.tasks = remove(c.tasks, id)
}

// Toggle flips the completed flag of the task with id and reports whether
// such a task existed. The local copy is updated whatever the API answers.
// If the task disappears or changes id while the call is in flight (deleted,
// or re-keyed by Reconcile or Refresh), the result is dropped; the returned
// task then reflects the flip that was sent and true is still reported.
func (c *Controller) Toggle(ctx context.Context, id int64) (model.Task, bool) {
	c.mu.Lock()
	i := model.Index(c.tasks, id)
	if i < 0 {
		c.mu.Unlock()
		return model.Task{}, false
	}
	updated := c.tasks[i]
	c.mu.Unlock()

	updated.Completed = !updated.Completed
	_, err := c.api.Update(ctx, id, updated)
	switch {
	case updated.Sync == model.Local:
	case err != nil:
		updated.Sync = model.Pending
	default:
		updated.Sync = model.Synced
	}
	if err != nil {
		c.logger.Error("could not update task via API, updating locally", "id", id, "err", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if j := model.Index(c.tasks, id); j >= 0 {
		c.tasks[j] = updated
	}
	return updated, true
}

// tempID returns the current time in milliseconds, bumped past any id
// already in the collection. Callers hold c.mu.
func (c *Controller) tempID() int64 {
	id := c.now().UnixMilli()
	for model.Index(c.tasks, id) >= 0 {
		id++
	}
	return id
}

// dedupe marks tasks synced and keeps the first task per id.
func dedupe(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	seen := make(map[int64]struct{}, len(tasks))
	for _, t := range tasks {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		t.Sync = model.Synced
		out = append(out, t)
	}
	return out
}

func remove(tasks []model.Task, id int64) []model.Task {
	out := tasks[:0]
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}
