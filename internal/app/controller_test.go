package app

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/testutil"
)

var errUnreachable = &api.NetworkError{Op: "test", Err: errors.New("connection refused")}

// mockAPI implements API with overridable funcs; nil funcs fail as unreachable.
type mockAPI struct {
	ListFunc   func(ctx context.Context) ([]model.Task, error)
	CreateFunc func(ctx context.Context, task model.Task) (model.Task, error)
	DeleteFunc func(ctx context.Context, id int64) error
	UpdateFunc func(ctx context.Context, id int64, task model.Task) (model.Task, error)

	calls []string
}

func (m *mockAPI) List(ctx context.Context) ([]model.Task, error) {
	m.calls = append(m.calls, "list")
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, errUnreachable
}

func (m *mockAPI) Create(ctx context.Context, task model.Task) (model.Task, error) {
	m.calls = append(m.calls, "create")
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, task)
	}
	return model.Task{}, errUnreachable
}

func (m *mockAPI) Delete(ctx context.Context, id int64) error {
	m.calls = append(m.calls, "delete")
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return errUnreachable
}

func (m *mockAPI) Update(ctx context.Context, id int64, task model.Task) (model.Task, error) {
	m.calls = append(m.calls, "update")
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, task)
	}
	return model.Task{}, errUnreachable
}

func listOf(tasks ...model.Task) func(context.Context) ([]model.Task, error) {
	return func(context.Context) ([]model.Task, error) {
		return append([]model.Task(nil), tasks...), nil
	}
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func loaded(t *testing.T, m *mockAPI, tasks ...model.Task) *Controller {
	t.Helper()
	m.ListFunc = listOf(tasks...)
	c := New(m)
	c.Load(context.Background())
	if got := len(c.Tasks()); got != len(tasks) {
		t.Fatalf("loaded %d tasks, want %d", got, len(tasks))
	}
	return c
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces collection with server list", func(t *testing.T) {
		c := New(&mockAPI{ListFunc: listOf(
			model.Task{ID: 1, Title: "A"},
			model.Task{ID: 2, Title: "B", Completed: true},
		)})
		c.Load(ctx)
		got := c.Tasks()
		if len(got) != 2 || got[0].Title != "A" || !got[1].Completed {
			t.Fatalf("Tasks = %+v", got)
		}
		for _, task := range got {
			if task.Sync != model.Synced {
				t.Errorf("task %d sync = %v", task.ID, task.Sync)
			}
		}
	})

	t.Run("unreachable api yields empty collection", func(t *testing.T) {
		c := New(&mockAPI{})
		c.Load(ctx)
		got := c.Tasks()
		if got == nil || len(got) != 0 {
			t.Fatalf("Tasks = %#v, want empty", got)
		}
		if !api.IsNetwork(c.LoadErr()) {
			t.Errorf("LoadErr = %v", c.LoadErr())
		}
	})

	t.Run("keeps first task per id", func(t *testing.T) {
		c := New(&mockAPI{ListFunc: listOf(
			model.Task{ID: 1, Title: "first"},
			model.Task{ID: 1, Title: "second"},
		)})
		c.Load(ctx)
		got := c.Tasks()
		if len(got) != 1 || got[0].Title != "first" {
			t.Fatalf("Tasks = %+v", got)
		}
	})
}

func TestAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("appends server task", func(t *testing.T) {
		m := &mockAPI{CreateFunc: func(_ context.Context, task model.Task) (model.Task, error) {
			if task.Completed {
				t.Error("create sent completed=true")
			}
			task.ID = 41
			return task, nil
		}}
		c := loaded(t, m)
		got := c.Add(ctx, "Buy milk")
		if got.ID != 41 || got.Title != "Buy milk" || got.Completed || got.Sync != model.Synced {
			t.Fatalf("Add = %+v", got)
		}
		tasks := c.Tasks()
		if len(tasks) != 1 || tasks[0] != got {
			t.Fatalf("Tasks = %+v", tasks)
		}
	})

	t.Run("unreachable api adds local task with timestamp id", func(t *testing.T) {
		c := New(&mockAPI{}, WithClock(fixedClock(1700000000000)))
		c.Load(ctx)
		got := c.Add(ctx, "X")
		if got.ID != 1700000000000 || got.Title != "X" || got.Completed || got.Sync != model.Local {
			t.Fatalf("Add = %+v", got)
		}
		if tasks := c.Tasks(); len(tasks) != 1 || tasks[0].ID != got.ID {
			t.Fatalf("Tasks = %+v", tasks)
		}
	})

	t.Run("temporary ids stay unique", func(t *testing.T) {
		c := New(&mockAPI{}, WithClock(fixedClock(5)))
		a := c.Add(ctx, "a")
		b := c.Add(ctx, "b")
		if a.ID == b.ID {
			t.Fatalf("duplicate ids %d", a.ID)
		}
	})

	t.Run("server id already present replaces instead of duplicating", func(t *testing.T) {
		m := &mockAPI{CreateFunc: func(_ context.Context, task model.Task) (model.Task, error) {
			task.ID = 1
			return task, nil
		}}
		c := loaded(t, m, model.Task{ID: 1, Title: "old"})
		c.Add(ctx, "new")
		tasks := c.Tasks()
		if len(tasks) != 1 || tasks[0].Title != "new" {
			t.Fatalf("Tasks = %+v", tasks)
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	seed := []model.Task{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}

	tests := []struct {
		name string
		err  error
	}{
		{"api succeeds", nil},
		{"api unreachable", errUnreachable},
		{"api server error", &api.ServerError{Op: "delete task", StatusCode: 500}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockAPI{DeleteFunc: func(context.Context, int64) error { return tt.err }}
			c := loaded(t, m, seed...)
			c.Delete(ctx, 1)
			tasks := c.Tasks()
			if len(tasks) != 1 || tasks[0].ID != 2 {
				t.Fatalf("Tasks = %+v", tasks)
			}
		})
	}

	t.Run("second delete leaves collection unchanged", func(t *testing.T) {
		m := &mockAPI{DeleteFunc: func(context.Context, int64) error { return nil }}
		c := loaded(t, m, seed...)
		c.Delete(ctx, 1)
		before := c.Tasks()
		c.Delete(ctx, 1)
		after := c.Tasks()
		if len(before) != len(after) || after[0] != before[0] {
			t.Fatalf("before %+v after %+v", before, after)
		}
		if c.Unsynced() != 0 {
			t.Errorf("Unsynced = %d", c.Unsynced())
		}
	})

	t.Run("failed delete of local task is not queued", func(t *testing.T) {
		c := New(&mockAPI{}, WithClock(fixedClock(9)))
		local := c.Add(ctx, "offline")
		c.Delete(ctx, local.ID)
		if len(c.Tasks()) != 0 || c.Unsynced() != 0 {
			t.Fatalf("Tasks = %+v, Unsynced = %d", c.Tasks(), c.Unsynced())
		}
	})
}

func TestToggle(t *testing.T) {
	ctx := context.Background()

	t.Run("flips completed on success", func(t *testing.T) {
		var sent model.Task
		m := &mockAPI{UpdateFunc: func(_ context.Context, id int64, task model.Task) (model.Task, error) {
			sent = task
			return task, nil
		}}
		c := loaded(t, m, model.Task{ID: 1, Title: "A"})
		got, ok := c.Toggle(ctx, 1)
		if !ok || !got.Completed {
			t.Fatalf("Toggle = %+v, %v", got, ok)
		}
		if !sent.Completed || sent.Title != "A" {
			t.Errorf("sent %+v", sent)
		}
		want := []model.Task{{ID: 1, Title: "A", Completed: true}}
		if tasks := c.Tasks(); len(tasks) != 1 || tasks[0] != want[0] {
			t.Fatalf("Tasks = %+v, want %+v", tasks, want)
		}
	})

	t.Run("flips completed when api fails", func(t *testing.T) {
		c := loaded(t, &mockAPI{}, model.Task{ID: 1, Title: "A", Completed: true})
		got, ok := c.Toggle(ctx, 1)
		if !ok || got.Completed || got.Sync != model.Pending {
			t.Fatalf("Toggle = %+v, %v", got, ok)
		}
		if tasks := c.Tasks(); tasks[0].Completed {
			t.Fatalf("Tasks = %+v", tasks)
		}
	})

	t.Run("missing id is a no-op", func(t *testing.T) {
		m := &mockAPI{}
		c := loaded(t, m, model.Task{ID: 1, Title: "A"})
		m.calls = nil
		if _, ok := c.Toggle(ctx, 99); ok {
			t.Fatal("Toggle reported a missing task")
		}
		if len(m.calls) != 0 {
			t.Errorf("api calls = %v", m.calls)
		}
		if tasks := c.Tasks(); len(tasks) != 1 || tasks[0].Completed {
			t.Fatalf("Tasks = %+v", tasks)
		}
	})

	t.Run("double toggle restores flag", func(t *testing.T) {
		m := &mockAPI{UpdateFunc: func(_ context.Context, _ int64, task model.Task) (model.Task, error) { return task, nil }}
		c := loaded(t, m, model.Task{ID: 1, Title: "A"})
		c.Toggle(ctx, 1)
		c.Toggle(ctx, 1)
		if c.Tasks()[0].Completed {
			t.Fatal("expected completed=false after two toggles")
		}
	})

	t.Run("task deleted in flight is not restored", func(t *testing.T) {
		var c *Controller
		m := &mockAPI{UpdateFunc: func(ctx context.Context, _ int64, task model.Task) (model.Task, error) {
			c.Delete(ctx, 1)
			return task, nil
		}}
		c = loaded(t, m, model.Task{ID: 1, Title: "A"})
		got, ok := c.Toggle(ctx, 1)
		if !ok || !got.Completed {
			t.Fatalf("Toggle = %+v, %v", got, ok)
		}
		if tasks := c.Tasks(); len(tasks) != 0 {
			t.Fatalf("Tasks = %+v, want empty", tasks)
		}
	})

	t.Run("local task stays local", func(t *testing.T) {
		c := New(&mockAPI{}, WithClock(fixedClock(3)))
		local := c.Add(ctx, "offline")
		got, _ := c.Toggle(ctx, local.ID)
		if got.Sync != model.Local || !got.Completed {
			t.Fatalf("Toggle = %+v", got)
		}
	})
}

func TestControllerAgainstServer(t *testing.T) {
	ctx := context.Background()
	srv := testutil.NewTaskServer(t, model.Task{ID: 1, Title: "A"})
	client, err := api.NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	c := New(client)
	c.Load(ctx)
	c.Add(ctx, "Buy milk")
	c.Toggle(ctx, 1)
	c.Delete(ctx, 2)

	want := []model.Task{{ID: 1, Title: "A", Completed: true}}
	got := c.Tasks()
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("Tasks = %+v", got)
	}
	if remote := srv.Tasks(); len(remote) != 1 || remote[0] != want[0] {
		t.Fatalf("server tasks = %+v", remote)
	}

	srv.FailWith(http.MethodGet, http.StatusServiceUnavailable)
	c.Load(ctx)
	if len(c.Tasks()) != 0 {
		t.Fatalf("Tasks after failed load = %+v", c.Tasks())
	}
}
