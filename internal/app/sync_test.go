package app

import (
	"context"
	"net/http"
	"testing"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/testutil"
)

func newServerController(t *testing.T, srv *testutil.TaskServer, opts ...Option) *Controller {
	t.Helper()
	client, err := api.NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return New(client, opts...)
}

func TestReconcilePushesOfflineWork(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewTaskServer(t,
		model.Task{ID: 1, Title: "A"},
		model.Task{ID: 2, Title: "B"},
	)
	c := newServerController(t, srv, WithClock(fixedClock(1000)))
	c.Load(ctx)

	srv.FailWith(http.MethodPost, http.StatusBadGateway)
	srv.FailWith(http.MethodPut, http.StatusBadGateway)
	srv.FailWith(http.MethodDelete, http.StatusBadGateway)

	local := c.Add(ctx, "offline")
	c.Toggle(ctx, 1)
	c.Delete(ctx, 2)
	if local.Sync != model.Local {
		t.Fatalf("offline add sync = %v", local.Sync)
	}
	if got := c.Unsynced(); got != 3 {
		t.Fatalf("Unsynced = %d, want 3", got)
	}

	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		srv.FailWith(m, 0)
	}
	if n := c.Reconcile(ctx); n != 3 {
		t.Fatalf("Reconcile = %d, want 3", n)
	}
	if got := c.Unsynced(); got != 0 {
		t.Fatalf("Unsynced after reconcile = %d", got)
	}

	tasks := c.Tasks()
	if len(tasks) != 2 {
		t.Fatalf("Tasks = %+v", tasks)
	}
	if tasks[0].ID != 1 || !tasks[0].Completed {
		t.Errorf("toggled task = %+v", tasks[0])
	}
	if tasks[1].ID != 3 || tasks[1].Title != "offline" {
		t.Errorf("pushed task = %+v", tasks[1])
	}

	remote := srv.Tasks()
	if len(remote) != 2 || remote[0].ID != 1 || !remote[0].Completed || remote[1].ID != 3 {
		t.Fatalf("server tasks = %+v", remote)
	}
}

func TestReconcileKeepsFailures(t *testing.T) {
	ctx := context.Background()
	c := New(&mockAPI{}, WithClock(fixedClock(7)))
	c.Add(ctx, "offline")

	if n := c.Reconcile(ctx); n != 0 {
		t.Fatalf("Reconcile = %d, want 0", n)
	}
	tasks := c.Tasks()
	if len(tasks) != 1 || tasks[0].Sync != model.Local || tasks[0].ID != 7 {
		t.Fatalf("Tasks = %+v", tasks)
	}
}

func TestReconcileTreatsMissingDeleteAsDone(t *testing.T) {
	ctx := context.Background()
	m := &mockAPI{DeleteFunc: func(context.Context, int64) error { return errUnreachable }}
	c := loaded(t, m, model.Task{ID: 5, Title: "gone"})
	c.Delete(ctx, 5)

	m.DeleteFunc = func(context.Context, int64) error {
		return &api.ServerError{Op: "delete task", StatusCode: http.StatusNotFound}
	}
	if n := c.Reconcile(ctx); n != 1 {
		t.Fatalf("Reconcile = %d, want 1", n)
	}
	if c.Unsynced() != 0 {
		t.Fatalf("Unsynced = %d", c.Unsynced())
	}
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("failed fetch keeps local tasks", func(t *testing.T) {
		m := &mockAPI{}
		c := loaded(t, m, model.Task{ID: 1, Title: "A"})
		m.ListFunc = nil
		c.Refresh(ctx)
		if tasks := c.Tasks(); len(tasks) != 1 || tasks[0].ID != 1 {
			t.Fatalf("Tasks = %+v", tasks)
		}
	})

	t.Run("merges unsynced state over server list", func(t *testing.T) {
		m := &mockAPI{}
		c := loaded(t, m,
			model.Task{ID: 1, Title: "A"},
			model.Task{ID: 2, Title: "B"},
		)
		c.now = fixedClock(100)
		c.Toggle(ctx, 1) // pending
		c.Delete(ctx, 2) // queued delete
		c.Add(ctx, "C")  // local

		m.ListFunc = listOf(
			model.Task{ID: 1, Title: "A"},
			model.Task{ID: 2, Title: "B"},
			model.Task{ID: 3, Title: "from elsewhere"},
		)
		c.Refresh(ctx)

		tasks := c.Tasks()
		if len(tasks) != 3 {
			t.Fatalf("Tasks = %+v", tasks)
		}
		if tasks[0].ID != 1 || !tasks[0].Completed || tasks[0].Sync != model.Pending {
			t.Errorf("pending task = %+v", tasks[0])
		}
		if tasks[1].ID != 3 {
			t.Errorf("server task = %+v", tasks[1])
		}
		if tasks[2].ID != 100 || tasks[2].Sync != model.Local {
			t.Errorf("local task = %+v", tasks[2])
		}
	})

	t.Run("reconciles first when enabled", func(t *testing.T) {
		srv := testutil.NewTaskServer(t)
		c := newServerController(t, srv, WithReconcile(true), WithClock(fixedClock(50)))

		srv.FailWith(http.MethodPost, http.StatusServiceUnavailable)
		c.Add(ctx, "later")
		srv.FailWith(http.MethodPost, 0)

		c.Refresh(ctx)
		tasks := c.Tasks()
		if len(tasks) != 1 || tasks[0].ID != 1 || tasks[0].Sync != model.Synced {
			t.Fatalf("Tasks = %+v", tasks)
		}
	})
}
