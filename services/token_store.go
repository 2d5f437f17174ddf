package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore remembers which single-use tokens have been redeemed.
type TokenStore interface {
	// MarkUsed records id and reports whether this was the first use.
	MarkUsed(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

type RedisTokenStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb, prefix: "quicklearner:token:used:"}
}

func (s *RedisTokenStore) MarkUsed(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, s.prefix+id, 1, ttl).Result()
}

// MemoryTokenStore is used when redis is disabled. Entries are dropped lazily
// once expired.
type MemoryTokenStore struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{used: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryTokenStore) MarkUsed(_ context.Context, id string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, exp := range s.used {
		if now.After(exp) {
			delete(s.used, k)
		}
	}
	if _, ok := s.used[id]; ok {
		return false, nil
	}
	s.used[id] = now.Add(ttl)
	return true, nil
}

// NewTokenStore picks redis when a client is configured.
func NewTokenStore(rdb *redis.Client) TokenStore {
	if rdb == nil {
		return NewMemoryTokenStore()
	}
	return NewRedisTokenStore(rdb)
}
