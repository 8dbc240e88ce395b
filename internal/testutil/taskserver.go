// Package testutil provides an in-memory task API for tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Makepad-fr/tada/internal/model"
)

// TaskServer serves GET/POST /tasks and DELETE/PUT /tasks/:id from memory.
// Stop it early with Close to simulate an unreachable API.
type TaskServer struct {
	*httptest.Server

	mu      sync.Mutex
	tasks   []model.Task
	nextID  int64
	fail    map[string]int
	headers []http.Header
}

// NewTaskServer starts a server seeded with tasks. It is closed on test cleanup.
func NewTaskServer(t testing.TB, seed ...model.Task) *TaskServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &TaskServer{nextID: 1, fail: map[string]int{}}
	for _, task := range seed {
		task.Sync = model.Synced
		s.tasks = append(s.tasks, task)
		if task.ID >= s.nextID {
			s.nextID = task.ID + 1
		}
	}

	r := gin.New()
	r.Use(s.record, s.injectFailure)
	r.GET("/tasks", s.list)
	r.POST("/tasks", s.create)
	r.DELETE("/tasks/:id", s.remove)
	r.PUT("/tasks/:id", s.update)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Server.Close)
	return s
}

// FailWith makes every request with the given method answer status.
// A status of 0 clears the failure.
func (s *TaskServer) FailWith(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.fail, method)
		return
	}
	s.fail[method] = status
}

// Tasks returns a copy of the stored tasks.
func (s *TaskServer) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Task{}, s.tasks...)
}

// Headers returns the headers of every request received so far.
func (s *TaskServer) Headers() []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]http.Header(nil), s.headers...)
}

func (s *TaskServer) record(c *gin.Context) {
	s.mu.Lock()
	s.headers = append(s.headers, c.Request.Header.Clone())
	s.mu.Unlock()
	c.Next()
}

func (s *TaskServer) injectFailure(c *gin.Context) {
	s.mu.Lock()
	status, ok := s.fail[c.Request.Method]
	s.mu.Unlock()
	if ok {
		c.AbortWithStatusJSON(status, gin.H{"error": "injected failure"})
		return
	}
	c.Next()
}

func (s *TaskServer) list(c *gin.Context) {
	c.JSON(http.StatusOK, s.Tasks())
}

func (s *TaskServer) create(c *gin.Context) {
	var req struct {
		Title     string `json:"title" binding:"required"`
		Completed bool   `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.mu.Lock()
	task := model.Task{ID: s.nextID, Title: req.Title, Completed: req.Completed}
	s.nextID++
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()
	c.JSON(http.StatusCreated, task)
}

func (s *TaskServer) remove(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := model.Index(s.tasks, id)
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	c.Status(http.StatusNoContent)
}

func (s *TaskServer) update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req model.Task
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := model.Index(s.tasks, id)
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	s.tasks[i] = model.Task{ID: id, Title: req.Title, Completed: req.Completed}
	c.JSON(http.StatusOK, s.tasks[i])
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
