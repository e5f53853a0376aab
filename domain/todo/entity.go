package todo

import (
	"time"
)

// Status represents the completion state of a todo.
type Status string

const (
	// StatusPending is the initial status of every todo.
	StatusPending Status = "pending"
	// StatusCompleted marks a todo as done.
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Todo represents a single user-owned task.
// ID and UserID are immutable after creation; a todo belongs to exactly
// one user and is never visible to another.
type Todo struct {
	ID        string    `gorm:"primaryKey;size:21" json:"id"`
	Title     string    `gorm:"not null;size:500" json:"title"`
	Status    Status    `gorm:"not null;default:pending;size:16" json:"status"`
	UserID    string    `gorm:"not null;index;size:36" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for the Todo entity.
func (Todo) TableName() string {
	return "todos"
}
