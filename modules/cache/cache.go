// Package cache provides the per-user todo-list cache backed by Redis.
//
// Each user has at most one entry: key "<prefix><userId>", value the
// JSON-encoded ordered todo list. Entries are only ever replaced
// wholesale and carry an absolute TTL that is reset by writes, never by
// reads, so worst-case staleness is bounded by the TTL even under
// continuous read-only traffic.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/todo-cache-demo/domain/todo"
)

// DefaultTTL bounds how stale a cached todo list can get.
const DefaultTTL = 5 * time.Minute

// DefaultPrefix is prepended to every user ID to form the Redis key.
const DefaultPrefix = "todo:"

// TodoCache stores per-user todo-list snapshots in Redis.
type TodoCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	stats  *Stats
}

// Stats tracks cache statistics.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Sets    uint64 `json:"sets"`
	Deletes uint64 `json:"deletes"`
	Errors  uint64 `json:"errors"`
}

// StatsSnapshot is a point-in-time view of the counters plus derived values.
type StatsSnapshot struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Sets      uint64  `json:"sets"`
	Deletes   uint64  `json:"deletes"`
	Errors    uint64  `json:"errors"`
	HitRate   float64 `json:"hit_rate"`
	TotalGets uint64  `json:"total_gets"`
}

// Config holds cache configuration.
type Config struct {
	RedisAddr string
	Prefix    string
	TTL       time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr: "localhost:6379",
		Prefix:    DefaultPrefix,
		TTL:       DefaultTTL,
	}
}

// New creates a new todo cache on top of an existing Redis client.
func New(client *redis.Client, prefix string, ttl time.Duration) *TodoCache {
	return &TodoCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		stats:  &Stats{},
	}
}

// key returns the Redis key for a user's todo list.
func (c *TodoCache) key(userID string) string {
	return c.prefix + userID
}

// GetList retrieves the cached todo list for userID.
// The second return value reports whether a live entry was found; an
// expired entry is indistinguishable from one that was never set.
func (c *TodoCache) GetList(ctx context.Context, userID string) ([]todo.Todo, bool, error) {
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			atomic.AddUint64(&c.stats.Misses, 1)
			return nil, false, nil
		}
		atomic.AddUint64(&c.stats.Errors, 1)
		return nil, false, fmt.Errorf("cache get error: %w", err)
	}

	var todos []todo.Todo
	if err := json.Unmarshal(data, &todos); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return nil, false, fmt.Errorf("cache unmarshal error: %w", err)
	}

	atomic.AddUint64(&c.stats.Hits, 1)
	return todos, true, nil
}

// SetList replaces the cached todo list for userID wholesale and resets
// its expiry clock to the configured TTL.
func (c *TodoCache) SetList(ctx context.Context, userID string, todos []todo.Todo) error {
	return c.SetListWithTTL(ctx, userID, todos, c.ttl)
}

// SetListWithTTL replaces the cached todo list with a custom TTL.
func (c *TodoCache) SetListWithTTL(ctx context.Context, userID string, todos []todo.Todo, ttl time.Duration) error {
	if todos == nil {
		todos = []todo.Todo{}
	}

	data, err := json.Marshal(todos)
	if err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := c.client.Set(ctx, c.key(userID), data, ttl).Err(); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return fmt.Errorf("cache set error: %w", err)
	}

	atomic.AddUint64(&c.stats.Sets, 1)
	return nil
}

// Remove deletes a user's entry outright. The steady-state protocol
// always replaces instead; this exists for defensive invalidation.
func (c *TodoCache) Remove(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return fmt.Errorf("cache delete error: %w", err)
	}

	atomic.AddUint64(&c.stats.Deletes, 1)
	return nil
}

// GetStats returns the current cache statistics.
func (c *TodoCache) GetStats() StatsSnapshot {
	hits := atomic.LoadUint64(&c.stats.Hits)
	misses := atomic.LoadUint64(&c.stats.Misses)
	totalGets := hits + misses

	var hitRate float64
	if totalGets > 0 {
		hitRate = float64(hits) / float64(totalGets) * 100
	}

	return StatsSnapshot{
		Hits:      hits,
		Misses:    misses,
		Sets:      atomic.LoadUint64(&c.stats.Sets),
		Deletes:   atomic.LoadUint64(&c.stats.Deletes),
		Errors:    atomic.LoadUint64(&c.stats.Errors),
		HitRate:   hitRate,
		TotalGets: totalGets,
	}
}

// ResetStats resets all statistics counters.
func (c *TodoCache) ResetStats() {
	atomic.StoreUint64(&c.stats.Hits, 0)
	atomic.StoreUint64(&c.stats.Misses, 0)
	atomic.StoreUint64(&c.stats.Sets, 0)
	atomic.StoreUint64(&c.stats.Deletes, 0)
	atomic.StoreUint64(&c.stats.Errors, 0)
}

// Ping checks if the Redis connection is healthy.
func (c *TodoCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (c *TodoCache) Close() error {
	return c.client.Close()
}
