package state

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/BlackMission/tencentauth/internal/domain"
)

const replayKeyPrefix = "state:nonce:"

// ReplayGuard records consumed state nonces so a sealed state is accepted at
// most once. Consume returns domain.ErrStateReplayed for a nonce seen before
// and wraps domain.ErrTransport when the backing store cannot be reached.
type ReplayGuard interface {
	Consume(ctx context.Context, nonce string, expiresAt time.Time) error
}

// remaining is how long a nonce must be remembered: until the sealed state
// itself would be rejected as expired.
func remaining(expiresAt time.Time, now time.Time) time.Duration {
	ttl := expiresAt.Sub(now)
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}

// MemoryReplayGuard keeps consumed nonces in process memory. Only correct for
// single-instance deployments.
type MemoryReplayGuard struct {
	c   *gocache.Cache
	now func() time.Time
}

// NewMemoryReplayGuard creates an in-process guard that purges expired
// entries every minute.
func NewMemoryReplayGuard() *MemoryReplayGuard {
	return &MemoryReplayGuard{
		c:   gocache.New(DefaultTTL, time.Minute),
		now: time.Now,
	}
}

func (g *MemoryReplayGuard) Consume(_ context.Context, nonce string, expiresAt time.Time) error {
	// Add fails when the key is already present, which makes check-and-set atomic.
	if err := g.c.Add(replayKeyPrefix+nonce, struct{}{}, remaining(expiresAt, g.now())); err != nil {
		return domain.ErrStateReplayed
	}
	return nil
}

// RedisReplayGuard shares consumed nonces across instances.
type RedisReplayGuard struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisReplayGuard uses client with an optional key prefix.
func NewRedisReplayGuard(client redis.UniversalClient, prefix string) *RedisReplayGuard {
	return &RedisReplayGuard{client: client, prefix: prefix, now: time.Now}
}

func (g *RedisReplayGuard) key(nonce string) string {
	if g.prefix == "" {
		return replayKeyPrefix + nonce
	}
	return g.prefix + ":" + replayKeyPrefix + nonce
}

func (g *RedisReplayGuard) Consume(ctx context.Context, nonce string, expiresAt time.Time) error {
	ok, err := g.client.SetNX(ctx, g.key(nonce), 1, remaining(expiresAt, g.now())).Result()
	if err != nil {
		return fmt.Errorf("%w: replay guard: %w", domain.ErrTransport, err)
	}
	if !ok {
		return domain.ErrStateReplayed
	}
	return nil
}
