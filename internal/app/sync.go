package app

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/model"
)

// Reconcile replays writes that failed earlier: remembered deletes, tasks
// created offline and toggles the server never saw. It returns how many were
// confirmed. Anything that fails again stays queued.
func (c *Controller) Reconcile(ctx context.Context) int {
	c.mu.Lock()
	deletes := make([]int64, 0, len(c.deletes))
	for id := range c.deletes {
		deletes = append(deletes, id)
	}
	var unsynced []model.Task
	for _, t := range c.tasks {
		if t.Sync != model.Synced {
			unsynced = append(unsynced, t)
		}
	}
	c.mu.Unlock()
	slices.Sort(deletes)

	confirmed := 0
	for _, id := range deletes {
		if err := c.api.Delete(ctx, id); err != nil && !isNotFound(err) {
			c.logger.Warn("delete still failing", "id", id, "err", err)
			continue
		}
		c.mu.Lock()
		delete(c.deletes, id)
		c.mu.Unlock()
		confirmed++
	}

	for _, t := range unsynced {
		var ok bool
		switch t.Sync {
		case model.Local:
			ok = c.pushLocal(ctx, t)
		case model.Pending:
			ok = c.pushPending(ctx, t)
		}
		if ok {
			confirmed++
		}
	}
	return confirmed
}

// pushLocal creates an offline task remotely and swaps the fabricated id for
// the server's.
func (c *Controller) pushLocal(ctx context.Context, t model.Task) bool {
	created, err := c.api.Create(ctx, model.Task{Title: t.Title, Completed: t.Completed})
	if err != nil {
		c.logger.Warn("create still failing", "id", t.ID, "title", t.Title, "err", err)
		return false
	}
	created.Sync = model.Synced

	c.mu.Lock()
	i := model.Index(c.tasks, t.ID)
	if i < 0 || c.tasks[i].Sync != model.Local {
		c.mu.Unlock()
		// Deleted locally while the create was in flight.
		if err := c.api.Delete(ctx, created.ID); err != nil {
			c.logger.Warn("could not remove orphaned task", "id", created.ID, "err", err)
		}
		return true
	}
	if cur := c.tasks[i]; cur.Completed != created.Completed {
		created.Completed = cur.Completed
		created.Sync = model.Pending
	}
	c.tasks[i] = created
	if created.ID != t.ID {
		c.tasks = dropDuplicate(c.tasks, created.ID, i)
	}
	c.mu.Unlock()

	c.logger.Info("task synced", "local_id", t.ID, "id", created.ID)
	return true
}

// pushPending re-sends a task whose last update failed.
func (c *Controller) pushPending(ctx context.Context, t model.Task) bool {
	_, err := c.api.Update(ctx, t.ID, model.Task{ID: t.ID, Title: t.Title, Completed: t.Completed})
	if err != nil {
		c.logger.Warn("update still failing", "id", t.ID, "err", err)
		if isNotFound(err) {
			// The server lost the row; recreate it on the next pass.
			c.mu.Lock()
			if i := model.Index(c.tasks, t.ID); i >= 0 {
				c.tasks[i].Sync = model.Local
			}
			c.mu.Unlock()
		}
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := model.Index(c.tasks, t.ID)
	if i >= 0 && c.tasks[i].Completed == t.Completed && c.tasks[i].Title == t.Title {
		c.tasks[i].Sync = model.Synced
	}
	return true
}

// Refresh fetches the server list without losing unsynced local work.
// With reconciliation enabled, failed writes are replayed first. If the
// fetch fails the current collection is kept.
func (c *Controller) Refresh(ctx context.Context) {
	c.loads.Do("load", func() (any, error) {
		if c.reconcile {
			c.Reconcile(ctx)
		}
		tasks, err := c.api.List(ctx)
		if err != nil {
			c.logger.Warn("could not refresh tasks, keeping local copy", "err", err)
			return nil, nil
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		c.tasks = c.merge(dedupe(tasks))
		return nil, nil
	})
}

// merge lays local state over a fresh server list: remembered deletes stay
// hidden, pending tasks keep their local copy and offline tasks go last.
// Callers hold c.mu.
func (c *Controller) merge(remote []model.Task) []model.Task {
	pending := map[int64]model.Task{}
	var local []model.Task
	for _, t := range c.tasks {
		switch t.Sync {
		case model.Pending:
			pending[t.ID] = t
		case model.Local:
			local = append(local, t)
		}
	}

	out := make([]model.Task, 0, len(remote)+len(local))
	onServer := make(map[int64]struct{}, len(remote))
	for _, t := range remote {
		onServer[t.ID] = struct{}{}
		if _, gone := c.deletes[t.ID]; gone {
			continue
		}
		if p, ok := pending[t.ID]; ok {
			t = p
		}
		out = append(out, t)
	}
	for id := range c.deletes {
		if _, ok := onServer[id]; !ok {
			delete(c.deletes, id)
		}
	}
	for _, t := range local {
		for model.Index(out, t.ID) >= 0 {
			t.ID++
		}
		out = append(out, t)
	}
	return out
}

// dropDuplicate removes any task with id other than the one at keep.
func dropDuplicate(tasks []model.Task, id int64, keep int) []model.Task {
	out := tasks[:0]
	for i, t := range tasks {
		if t.ID == id && i != keep {
			continue
		}
		out = append(out, t)
	}
	return out
}

func isNotFound(err error) bool {
	var se *api.ServerError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
