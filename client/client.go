package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	todo "github.com/example/todo-cache-demo/domain/todo"
)

// Client calls the todo API and keeps a session registry in sync with
// the responses. Every successful mutation applies exactly one registry
// operation; anything else is resolved by re-fetching with ListTodos.
type Client struct {
	baseURL    string
	httpClient *http.Client
	registry   *Registry
	token      string
}

// apiError is returned when the server answers with a failure envelope.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// New creates a client bound to the given base URL and registry.
func New(baseURL string, registry *Registry) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		registry: registry,
	}
}

// SetToken sets the Bearer token used on authenticated requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Registry returns the session registry this client mutates.
func (c *Client) Registry() *Registry {
	return c.registry
}

// Login authenticates with credentials and stores the access token for
// subsequent requests.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/login", body, http.StatusOK, &resp); err != nil {
		return err
	}

	c.token = resp.AccessToken
	return nil
}

// CreateTodo creates a todo and appends it to the registry.
func (c *Client) CreateTodo(ctx context.Context, title string) (*todo.Todo, error) {
	body := map[string]string{"title": title}

	var resp struct {
		Success bool       `json:"success"`
		Message string     `json:"message"`
		Todo    *todo.Todo `json:"todo"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/todo", body, http.StatusCreated, &resp); err != nil {
		return nil, err
	}

	c.registry.Append(*resp.Todo)
	return resp.Todo, nil
}

// ListTodos fetches the full list and replaces the registry contents.
func (c *Client) ListTodos(ctx context.Context) ([]todo.Todo, error) {
	var resp struct {
		Success bool        `json:"success"`
		Todos   []todo.Todo `json:"todos"`
	}
	// 200 marks a cache hit, 201 a store fetch; both carry the list.
	if err := c.do(ctx, http.MethodGet, "/api/todo", nil, 0, &resp); err != nil {
		return nil, err
	}

	c.registry.ReplaceAll(resp.Todos)
	return resp.Todos, nil
}

// UpdateTodo patches a todo and replaces the matching registry element.
func (c *Client) UpdateTodo(ctx context.Context, id string, title, status *string) (*todo.Todo, error) {
	body := map[string]any{}
	if title != nil {
		body["title"] = *title
	}
	if status != nil {
		body["status"] = *status
	}

	var resp struct {
		Success    bool       `json:"success"`
		UpdateTodo *todo.Todo `json:"updateTodo"`
	}
	if err := c.do(ctx, http.MethodPatch, "/api/todo/"+id, body, http.StatusCreated, &resp); err != nil {
		return nil, err
	}

	c.registry.Replace(*resp.UpdateTodo)
	return resp.UpdateTodo, nil
}

// DeleteTodo deletes a todo and filters it out of the registry.
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/todo/"+id, nil, http.StatusCreated, nil); err != nil {
		return err
	}

	c.registry.Remove(id)
	return nil
}

// do performs one request/response cycle. expectedStatus 0 accepts any
// 2xx status.
func (c *Client) do(ctx context.Context, method, path string, body any, expectedStatus int, dest any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	ok := resp.StatusCode == expectedStatus
	if expectedStatus == 0 {
		ok = resp.StatusCode >= 200 && resp.StatusCode < 300
	}
	if !ok {
		var envelope struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &envelope)
		return &apiError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}

	if dest != nil {
		if err := json.Unmarshal(data, dest); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
