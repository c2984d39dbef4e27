package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the external service's REST endpoint.
const DefaultBaseURL = "https://api.todoist.com/rest/v2"

// APIError is returned for any non-2xx response, carrying the status and
// the response body text for diagnosis. The client never retries; retry
// policy belongs to the caller.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("external service returned %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether the error was a 404 for a missing resource.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Client is a typed HTTP client for the external task service. One client is
// bound to one account's API token; callers construct a client per account
// and inject it rather than sharing a process-wide instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client authenticated with the given API token. The
// oauth2 transport injects the bearer header on every request. baseURL may
// be empty to use the production endpoint.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = timeout
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// ListTasks returns every non-deleted task visible to the token.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask fetches a single task by id.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+id, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask creates a task and returns it with its assigned id.
func (c *Client) CreateTask(ctx context.Context, params TaskParams) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodPost, "/tasks", params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask applies a partial update. Omitted fields are left unchanged
// server-side.
func (c *Client) UpdateTask(ctx context.Context, id string, params TaskParams) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodPost, "/tasks/"+id, params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CloseTask marks a task completed.
func (c *Client) CloseTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/tasks/"+id+"/close", nil, nil)
}

// ReopenTask reopens a completed task.
func (c *Client) ReopenTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/tasks/"+id+"/reopen", nil, nil)
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+id, nil, nil)
}

// ListProjects returns the projects visible to the token.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// ValidateToken probes connectivity by listing projects. It is only a
// configuration-time check and is never called on the reconciliation path.
func (c *Client) ValidateToken(ctx context.Context) bool {
	_, err := c.ListProjects(ctx)
	return err == nil
}

// do runs one request. A 204 or empty body is an intentional void result,
// not a decoding failure.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("external service request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal external service response: %w", err)
	}
	return nil
}
