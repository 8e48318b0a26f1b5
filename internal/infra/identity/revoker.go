package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bryanwahyu/balancesheet-gpt/internal/application"
)

// Revoker remembers signed-out token IDs until the tokens would expire anyway.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevoker keeps revoked IDs in process. Expired entries are dropped on
// the next Revoke.
type MemoryRevoker struct {
	mu      sync.Mutex
	clock   application.Clock
	expires map[string]time.Time
}

func NewMemoryRevoker(clock application.Clock) *MemoryRevoker {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &MemoryRevoker{clock: clock, expires: make(map[string]time.Time)}
}

func (m *MemoryRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, exp := range m.expires {
		if !now.Before(exp) {
			delete(m.expires, k)
		}
	}
	m.expires[jti] = now.Add(ttl)
	return nil
}

func (m *MemoryRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expires[jti]
	return ok && m.clock.Now().Before(exp), nil
}

// Len is the number of tracked IDs, expired or not.
func (m *MemoryRevoker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.expires)
}

// RedisRevoker shares revocations between instances.
type RedisRevoker struct {
	client    redis.Cmdable
	keyPrefix string
}

func NewRedisRevoker(client redis.Cmdable) *RedisRevoker {
	return &RedisRevoker{client: client, keyPrefix: "token:revoked:"}
}

func (r *RedisRevoker) key(jti string) string { return r.keyPrefix + jti }

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}
