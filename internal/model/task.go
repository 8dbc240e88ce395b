package model

// SyncState records how a task relates to the server copy.
// It lives only in memory and is never sent over the wire.
type SyncState int

const (
	// Synced means the last write was confirmed by the server.
	Synced SyncState = iota
	// Pending means a remote update failed and the local copy is newer.
	Pending
	// Local means the task was created offline; its ID is fabricated.
	Local
)

func (s SyncState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Local:
		return "local"
	default:
		return "synced"
	}
}

// Task is the domain model for a todo entry.
type Task struct {
	ID        int64     `json:"id,omitempty"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	Sync      SyncState `json:"-"`
}

// Index returns the position of the task with id, or -1.
func Index(tasks []Task, id int64) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Stats counts completed and open tasks.
func Stats(tasks []Task) (done, pending int) {
	for _, t := range tasks {
		if t.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}
