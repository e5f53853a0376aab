// Package todo provides the todo service: the single entry point for
// all todo reads and mutations, responsible for keeping the per-user
// cache entry and the durable store in agreement.
//
// Every write mutates the store first and reconciles the cache second.
// The store is the durability anchor; the cache is a best-effort
// accelerator whose divergence is bounded by its TTL. Ownership checks
// always hit the store, never the cache.
package todo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jaevor/go-nanoid"
	"golang.org/x/sync/singleflight"

	domain "github.com/example/todo-cache-demo/domain/todo"
	"github.com/example/todo-cache-demo/modules/cache"
)

var (
	// ErrEmptyTitle is returned when a todo is created with a blank title.
	ErrEmptyTitle = errors.New("title must not be empty")
	// ErrEmptyPatch is returned when an update supplies neither title nor status.
	ErrEmptyPatch = errors.New("at least one of title or status is required")
	// ErrInvalidStatus is returned when a patch carries an unknown status value.
	ErrInvalidStatus = errors.New("status must be pending or completed")
)

// todoIDLength matches the default nanoid length the original records use.
const todoIDLength = 21

// UpdatePatch describes a partial update. A nil field is left untouched.
type UpdatePatch struct {
	Title  *string `json:"title,omitempty"`
	Status *string `json:"status,omitempty"`
}

// Service orchestrates store writes and cache reconciliation for todos.
type Service struct {
	repo    *domain.Repository
	cache   *cache.TodoCache
	sfGroup singleflight.Group
	newID   func() string
}

// NewService creates a new todo service.
func NewService(repo *domain.Repository, c *cache.TodoCache) (*Service, error) {
	gen, err := nanoid.Standard(todoIDLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create id generator: %w", err)
	}
	return &Service{
		repo:  repo,
		cache: c,
		newID: gen,
	}, nil
}

// Create inserts a new todo for userID with status pending, then adds it
// to the front of the user's cache entry (a missing or expired entry is
// treated as an empty list) and resets the entry's TTL.
func (s *Service) Create(ctx context.Context, userID, title string) (*domain.Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	t := &domain.Todo{
		ID:     s.newID(),
		Title:  title,
		Status: domain.StatusPending,
		UserID: userID,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	// Store write committed; cache reconciliation is best-effort from here.
	cached, found, err := s.cache.GetList(ctx, userID)
	if err != nil {
		log.Printf("[todo] Warning: cache read failed for user %s: %v", userID, err)
	}
	if !found {
		cached = []domain.Todo{}
	}

	// Cached lists are ordered most-recently-created first.
	updated := append([]domain.Todo{*t}, cached...)
	if err := s.cache.SetList(ctx, userID, updated); err != nil {
		log.Printf("[todo] Warning: cache write failed for user %s: %v", userID, err)
	}

	return t, nil
}

// List returns all todos owned by userID, most recently created first.
// A live cache entry is returned as-is without touching the store; on a
// miss the store is queried and a fresh entry populated. Reading a live
// entry never extends its TTL. The second return value reports a cache
// hit. Cache errors degrade the read to a store-only query.
func (s *Service) List(ctx context.Context, userID string) ([]domain.Todo, bool, error) {
	cached, found, err := s.cache.GetList(ctx, userID)
	if err != nil {
		log.Printf("[todo] Warning: cache read failed for user %s, falling back to store: %v", userID, err)
	}
	if found {
		return cached, true, nil
	}

	// Singleflight collapses concurrent misses for the same user into
	// one store query.
	val, err, _ := s.sfGroup.Do(userID, func() (any, error) {
		todos, err := s.repo.FindByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetList(ctx, userID, todos); err != nil {
			log.Printf("[todo] Warning: cache populate failed for user %s: %v", userID, err)
		}
		return todos, nil
	})
	if err != nil {
		return nil, false, err
	}

	return val.([]domain.Todo), false, nil
}

// Update applies patch to a todo owned by userID. The ownership check
// runs against the store; domain.ErrTodoNotFound covers both a missing
// todo and one owned by a different user. On success the matching
// element inside the cache entry is replaced and the TTL reset; other
// cached elements are left untouched.
func (s *Service) Update(ctx context.Context, userID, id string, patch UpdatePatch) (*domain.Todo, error) {
	if patch.Title == nil && patch.Status == nil {
		return nil, ErrEmptyPatch
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, ErrEmptyTitle
	}
	if patch.Status != nil && !domain.Status(*patch.Status).Valid() {
		return nil, ErrInvalidStatus
	}

	t, err := s.repo.FindByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		t.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Status != nil {
		t.Status = domain.Status(*patch.Status)
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	s.replaceCached(ctx, userID, t)
	return t, nil
}

// Delete removes a todo owned by userID from the store, then filters it
// out of the cache entry if one is present and resets the TTL. Deleting
// an unknown or foreign todo returns domain.ErrTodoNotFound and mutates
// nothing.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	// Ownership is confirmed against the store, never the cache.
	if _, err := s.repo.FindByIDAndUser(ctx, id, userID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}

	cached, found, err := s.cache.GetList(ctx, userID)
	if err != nil {
		log.Printf("[todo] Warning: cache read failed for user %s: %v", userID, err)
		return nil
	}
	if !found {
		return nil
	}

	filtered := make([]domain.Todo, 0, len(cached))
	for _, c := range cached {
		if c.ID != id {
			filtered = append(filtered, c)
		}
	}
	if err := s.cache.SetList(ctx, userID, filtered); err != nil {
		log.Printf("[todo] Warning: cache write failed for user %s: %v", userID, err)
	}

	return nil
}

// CacheStats exposes the cache counters for the stats endpoint.
func (s *Service) CacheStats() cache.StatsSnapshot {
	return s.cache.GetStats()
}

// ResetCacheStats resets the cache counters.
func (s *Service) ResetCacheStats() {
	s.cache.ResetStats()
}

// replaceCached swaps the element with t.ID inside the user's cached
// list and resets the TTL. A missing entry is left missing: writing a
// partial list here could make the cache claim less than the store
// holds, so the next List repopulates instead.
func (s *Service) replaceCached(ctx context.Context, userID string, t *domain.Todo) {
	cached, found, err := s.cache.GetList(ctx, userID)
	if err != nil {
		log.Printf("[todo] Warning: cache read failed for user %s: %v", userID, err)
		return
	}
	if !found {
		return
	}

	for i := range cached {
		if cached[i].ID == t.ID {
			cached[i] = *t
		}
	}
	if err := s.cache.SetList(ctx, userID, cached); err != nil {
		log.Printf("[todo] Warning: cache write failed for user %s: %v", userID, err)
	}
}
