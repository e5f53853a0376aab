package api

import (
	todo "github.com/example/todo-cache-demo/domain/todo"
)

// SignupRequest represents a user registration request.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse represents an authentication token response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// UserPayload is the public view of a user returned after signup.
type UserPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SignupResponse is the response after a successful signup.
type SignupResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	User    UserPayload `json:"user"`
}

// CreateTodoRequest is the body of POST /api/todo.
type CreateTodoRequest struct {
	Title string `json:"title"`
}

// UpdateTodoRequest is the body of PATCH /api/todo/:id.
// A nil field leaves the corresponding attribute untouched.
type UpdateTodoRequest struct {
	Title  *string `json:"title,omitempty"`
	Status *string `json:"status,omitempty"`
}

// TodoResponse is the response after creating a todo.
type TodoResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Todo    *todo.Todo `json:"todo"`
}

// TodosResponse is the response of GET /api/todo.
type TodosResponse struct {
	Success bool        `json:"success"`
	Todos   []todo.Todo `json:"todos"`
	Message string      `json:"message"`
}

// UpdateTodoResponse is the response after updating a todo.
// The field name matches the wire format clients already consume.
type UpdateTodoResponse struct {
	Success    bool       `json:"success"`
	Message    string     `json:"message"`
	UpdateTodo *todo.Todo `json:"updateTodo"`
}

// MessageResponse is the generic success/failure envelope.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
