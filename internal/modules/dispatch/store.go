// README: Dedupe store recording rides the auto-revive monitor already claimed.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"fleetops/internal/types"
)

const (
	revivedKeyPrefix = "dispatch:ride:%d:revived"
	// Rides are collected for today only, so two days outlives any candidate.
	revivedTTL = 48 * time.Hour
)

// ProcessedStore lets the monitor act on each ride once.
type ProcessedStore interface {
	// Claim marks id processed and reports whether this caller was first.
	Claim(ctx context.Context, id types.ID) (bool, error)
	// Release drops a claim so the ride is considered again on the next tick.
	Release(ctx context.Context, id types.ID) error
}

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func (s *Store) Claim(ctx context.Context, id types.ID) (bool, error) {
	return s.redis.SetNX(ctx, revivedKey(id), time.Now().UTC().Format(time.RFC3339), revivedTTL).Result()
}

func (s *Store) Release(ctx context.Context, id types.ID) error {
	return s.redis.Del(ctx, revivedKey(id)).Err()
}

func revivedKey(id types.ID) string {
	return fmt.Sprintf(revivedKeyPrefix, int64(id))
}

// MemoryStore is the in-process ProcessedStore used when Redis is not configured.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[types.ID]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[types.ID]struct{})}
}

func (m *MemoryStore) Claim(ctx context.Context, id types.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[id]; ok {
		return false, nil
	}
	m.seen[id] = struct{}{}
	return true, nil
}

func (m *MemoryStore) Release(ctx context.Context, id types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
	return nil
}
