package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FinalizeGuard serializes receipt finalization per record. Acquire returns
// acquired=false while another holder is active; release is always safe to
// call and only drops the lock the caller owns.
type FinalizeGuard interface {
	Acquire(ctx context.Context, recordID string, ttl time.Duration) (release func(), acquired bool, err error)
}

type InMemoryFinalizeGuard struct {
	mu    sync.Mutex
	locks map[string]guardEntry
	now   func() time.Time
}

type guardEntry struct {
	owner     string
	expiresAt time.Time
}

func NewInMemoryFinalizeGuard() *InMemoryFinalizeGuard {
	return &InMemoryFinalizeGuard{locks: map[string]guardEntry{}, now: time.Now}
}

func (g *InMemoryFinalizeGuard) Acquire(_ context.Context, recordID string, ttl time.Duration) (func(), bool, error) {
	now := g.now()
	owner := uuid.NewString()
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.locks[recordID]; ok && now.Before(cur.expiresAt) {
		return func() {}, false, nil
	}
	g.locks[recordID] = guardEntry{owner: owner, expiresAt: now.Add(ttl)}
	return func() {
		g.mu.Lock()
		if cur, ok := g.locks[recordID]; ok && cur.owner == owner {
			delete(g.locks, recordID)
		}
		g.mu.Unlock()
	}, true, nil
}

var redisGuardReleaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisFinalizeGuard struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisFinalizeGuard(client redis.UniversalClient, prefix string) *RedisFinalizeGuard {
	if prefix == "" {
		prefix = "finalize"
	}
	return &RedisFinalizeGuard{client: client, prefix: prefix}
}

func (g *RedisFinalizeGuard) Acquire(ctx context.Context, recordID string, ttl time.Duration) (func(), bool, error) {
	key := fmt.Sprintf("%s:%s", g.prefix, recordID)
	owner := uuid.NewString()
	ok, err := g.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return func() {}, false, fmt.Errorf("acquire finalize guard: %w", err)
	}
	if !ok {
		return func() {}, false, nil
	}
	return func() {
		// Detached from the request so a cancelled client still frees the lock.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = redisGuardReleaseScript.Run(releaseCtx, g.client, []string{key}, owner).Err()
	}, true, nil
}
