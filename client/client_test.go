package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	todo "github.com/example/todo-cache-demo/domain/todo"
)

// stubServer simulates the todo API: enough state to answer each
// endpoint with the envelope shapes the real server uses.
func stubServer(t *testing.T) *httptest.Server {
	t.Helper()

	todos := map[string]todo.Todo{}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "password123" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Invalid email or password"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "stub-access-token",
			"refresh_token": "stub-refresh-token",
			"token_type":    "Bearer",
		})
	})

	mux.HandleFunc("POST /api/todo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer stub-access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Unauthorized access, try login first"})
			return
		}
		var req struct {
			Title string `json:"title"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Title == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Title can't be empty"})
			return
		}
		created := todo.Todo{ID: "todo-" + req.Title, Title: req.Title, Status: todo.StatusPending, UserID: "user-1"}
		todos[created.ID] = created
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "todo created", "todo": created})
	})

	mux.HandleFunc("GET /api/todo", func(w http.ResponseWriter, r *http.Request) {
		list := make([]todo.Todo, 0, len(todos))
		for _, td := range todos {
			list = append(list, td)
		}
		// Store fetch answers 201; cache hits answer 200. The client
		// must accept both.
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "todos": list, "message": "todos fetched successfully"})
	})

	mux.HandleFunc("PATCH /api/todo/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		td, ok := todos[id]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "no such todo exists"})
			return
		}
		var req struct {
			Title  *string `json:"title"`
			Status *string `json:"status"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Title != nil {
			td.Title = *req.Title
		}
		if req.Status != nil {
			td.Status = todo.Status(*req.Status)
		}
		todos[id] = td
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "successfully updated", "updateTodo": td})
	})

	mux.HandleFunc("DELETE /api/todo/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, ok := todos[id]; !ok {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "no such todo exists"})
			return
		}
		delete(todos, id)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "successfully deleted"})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClient_Login(t *testing.T) {
	server := stubServer(t)
	c := New(server.URL, NewRegistry())
	ctx := context.Background()

	require.NoError(t, c.Login(ctx, "alice@example.com", "password123"))

	err := c.Login(ctx, "alice@example.com", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid email or password")
}

func TestClient_CreateTodo_SyncsRegistry(t *testing.T) {
	server := stubServer(t)
	reg := NewRegistry()
	c := New(server.URL, reg)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "alice@example.com", "password123"))

	created, err := c.CreateTodo(ctx, "buy milk")
	require.NoError(t, err)
	assert.Equal(t, "buy milk", created.Title)
	assert.Equal(t, todo.StatusPending, created.Status)

	require.Equal(t, 1, reg.Len())
	assert.Equal(t, created.ID, reg.Todos()[0].ID)
}

func TestClient_CreateTodo_FailureLeavesRegistryUntouched(t *testing.T) {
	server := stubServer(t)
	reg := NewRegistry()
	c := New(server.URL, reg)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "alice@example.com", "password123"))

	_, err := c.CreateTodo(ctx, "")
	require.Error(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestClient_Unauthorized(t *testing.T) {
	server := stubServer(t)
	reg := NewRegistry()
	c := New(server.URL, reg)

	_, err := c.CreateTodo(context.Background(), "no token set")
	require.Error(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestClient_ListTodos_ReplacesRegistry(t *testing.T) {
	server := stubServer(t)
	reg := NewRegistry()
	c := New(server.URL, reg)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "alice@example.com", "password123"))

	// Seed the registry with a stale entry the server knows nothing about.
	reg.Append(todo.Todo{ID: "stale", Title: "gone"})

	_, err := c.CreateTodo(ctx, "real task")
	require.NoError(t, err)

	listed, err := c.ListTodos(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	// The fetch replaced the whole mirror; the stale entry is gone.
	todos := reg.Todos()
	require.Len(t, todos, 1)
	assert.Equal(t, "real task", todos[0].Title)
}

func TestClient_UpdateTodo_SyncsRegistry(t *testing.T) {
	server := stubServer(t)
	reg := NewRegistry()
	c := New(server.URL, reg)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "alice@example.com", "password123"))

	created, err := c.CreateTodo(ctx, "task")
	require.NoError(t, err)

	status := "completed"
	updated, err := c.UpdateTodo(ctx, created.ID, nil, &status)
	require.NoError(t, err)
	assert.Equal(t, todo.StatusCompleted, updated.Status)

	todos := reg.Todos()
	require.Len(t, todos, 1)
	assert.Equal(t, todo.StatusCompleted, todos[0].Status)
}

func TestClient_UpdateTodo_UnknownID(t *testing.T) {
	server := stubServer(t)
	reg := NewRegistry()
	c := New(server.URL, reg)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "alice@example.com", "password123"))

	status := "completed"
	_, err := c.UpdateTodo(ctx, "no-such-id", nil, &status)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such todo exists")
}

func TestClient_DeleteTodo_SyncsRegistry(t *testing.T) {
	server := stubServer(t)
	reg := NewRegistry()
	c := New(server.URL, reg)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "alice@example.com", "password123"))

	created, err := c.CreateTodo(ctx, "doomed")
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())

	require.NoError(t, c.DeleteTodo(ctx, created.ID))
	assert.Equal(t, 0, reg.Len())

	// Failed delete leaves the registry alone.
	err = c.DeleteTodo(ctx, created.ID)
	require.Error(t, err)
	assert.Equal(t, 0, reg.Len())
}
