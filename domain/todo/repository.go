package todo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrTodoNotFound is returned when a todo does not exist or is owned by
// a different user. The two cases are deliberately indistinguishable.
var ErrTodoNotFound = errors.New("todo not found")

// Repository provides database operations for todos.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new todo repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new todo.
func (r *Repository) Create(ctx context.Context, t *Todo) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create todo: %w", err)
	}
	return nil
}

// FindByUser retrieves all todos owned by userID, most recently created first.
func (r *Repository) FindByUser(ctx context.Context, userID string) ([]Todo, error) {
	var todos []Todo
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&todos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return todos, nil
}

// FindByIDAndUser retrieves a todo by ID, scoped to its owner.
// Returns ErrTodoNotFound when the todo is absent or owned by someone else.
func (r *Repository) FindByIDAndUser(ctx context.Context, id, userID string) (*Todo, error) {
	var t Todo
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTodoNotFound
		}
		return nil, fmt.Errorf("failed to find todo: %w", err)
	}
	return &t, nil
}

// Update persists changes to an existing todo.
func (r *Repository) Update(ctx context.Context, t *Todo) error {
	if err := r.db.WithContext(ctx).Save(t).Error; err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}
	return nil
}

// Delete removes a todo by ID, scoped to its owner.
// Returns ErrTodoNotFound when nothing was deleted.
func (r *Repository) Delete(ctx context.Context, id, userID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&Todo{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete todo: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTodoNotFound
	}
	return nil
}

// CountByUser returns the number of todos owned by userID.
func (r *Repository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Todo{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count todos: %w", err)
	}
	return count, nil
}

// Migrate runs database migrations for the todos table.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&Todo{})
}
