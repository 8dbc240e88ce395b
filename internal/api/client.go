// Package api talks to the remote task service over HTTP.
package api

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Makepad-fr/tada/internal/model"
)

const defaultTimeout = 10 * time.Second

//go:embed task.schema.json
var taskSchemaJSON string

// taskSchemaID is absolute so it never resolves against the working directory.
const taskSchemaID = "tada://task.schema.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(taskSchemaID, strings.NewReader(taskSchemaJSON)); err != nil {
		return nil, err
	}
	return c.Compile(taskSchemaID)
})

// Client wraps the four task endpoints: list, create, delete, update.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *log.Logger
	schema     *jsonschema.Schema
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for per-request debug lines.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client for the API rooted at baseURL
// (e.g. "http://localhost:8080"; requests go to baseURL + "/tasks").
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", baseURL)
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile task schema: %w", err)
	}
	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     log.New(io.Discard),
		schema:     schema,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string { return c.baseURL }

// List fetches every task: GET /tasks.
func (c *Client) List(ctx context.Context) ([]model.Task, error) {
	const op = "list tasks"
	status, data, err := c.do(ctx, op, http.MethodGet, "/tasks", nil)
	if err != nil {
		return nil, err
	}
	var tasks []model.Task
	if err := c.decode(op, status, data, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// Create posts {title, completed} and returns the task with its server id.
func (c *Client) Create(ctx context.Context, task model.Task) (model.Task, error) {
	const op = "create task"
	body := model.Task{Title: task.Title, Completed: task.Completed}
	status, data, err := c.do(ctx, op, http.MethodPost, "/tasks", body)
	if err != nil {
		return model.Task{}, err
	}
	var created model.Task
	if err := c.decode(op, status, data, &created); err != nil {
		return model.Task{}, err
	}
	return created, nil
}

// Delete removes a task: DELETE /tasks/{id}. Any 2xx counts as success.
func (c *Client) Delete(ctx context.Context, id int64) error {
	_, _, err := c.do(ctx, "delete task", http.MethodDelete, taskPath(id), nil)
	return err
}

// Update replaces a task: PUT /tasks/{id}. An empty response body yields the
// task that was sent.
func (c *Client) Update(ctx context.Context, id int64, task model.Task) (model.Task, error) {
	const op = "update task"
	task.ID = id
	status, data, err := c.do(ctx, op, http.MethodPut, taskPath(id), task)
	if err != nil {
		return model.Task{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return task, nil
	}
	var updated model.Task
	if err := c.decode(op, status, data, &updated); err != nil {
		return model.Task{}, err
	}
	return updated, nil
}

func taskPath(id int64) string {
	return fmt.Sprintf("/tasks/%d", id)
}

func (c *Client) do(ctx context.Context, op, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "request_id", reqID, "err", err)
		return 0, nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	c.logger.Debug("request",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", reqID,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, nil, &ServerError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	return resp.StatusCode, data, nil
}

// decode validates the body against the task schema before unmarshalling into v.
func (c *Client) decode(op string, status int, data []byte, v any) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return &ServerError{Op: op, StatusCode: status, Message: "malformed response: " + err.Error()}
	}
	if err := c.schema.Validate(doc); err != nil {
		return &ServerError{Op: op, StatusCode: status, Message: "unexpected response: " + err.Error()}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &ServerError{Op: op, StatusCode: status, Message: "unexpected response: " + err.Error()}
	}
	return nil
}

// errorMessage pulls {"error": "..."} out of a failure body, falling back to
// the raw text.
func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	msg := strings.TrimSpace(string(data))
	if r := []rune(msg); len(r) > 200 {
		msg = string(r[:197]) + "..."
	}
	return msg
}
