// Package client provides a Go client for the todo API plus the
// client-side registry that mirrors the last-known task list.
package client

import (
	"sync"

	todo "github.com/example/todo-cache-demo/domain/todo"
)

// Registry holds the last-known todo list fetched by a client session,
// supporting reactive redraw. It is a mirror, not a cache: it has no
// reconciliation logic of its own and is mutated only through the four
// operations below, each driven by a server response. Inconsistency is
// resolved only by re-fetching the full list.
//
// A Registry is an explicitly passed, session-scoped container; create
// one per session and hand it to the Client.
type Registry struct {
	mu    sync.RWMutex
	todos []todo.Todo
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		todos: []todo.Todo{},
	}
}

// Append adds a newly created todo to the registry.
func (r *Registry) Append(t todo.Todo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.todos = append(r.todos, t)
}

// Replace swaps the element with the same ID for the updated todo.
// Elements with other IDs are left untouched.
func (r *Registry) Replace(updated todo.Todo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.todos {
		if r.todos[i].ID == updated.ID {
			r.todos[i] = updated
		}
	}
}

// Remove filters out the element with the given ID.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	filtered := r.todos[:0]
	for _, t := range r.todos {
		if t.ID != id {
			filtered = append(filtered, t)
		}
	}
	r.todos = filtered
}

// ReplaceAll replaces the entire sequence with a freshly fetched list.
func (r *Registry) ReplaceAll(todos []todo.Todo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.todos = make([]todo.Todo, len(todos))
	copy(r.todos, todos)
}

// Todos returns a copy of the current list.
func (r *Registry) Todos() []todo.Todo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]todo.Todo, len(r.todos))
	copy(out, r.todos)
	return out
}

// Len returns the number of todos currently mirrored.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.todos)
}
