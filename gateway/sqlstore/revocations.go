package sqlstore

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "session:revoked:"

// Revocations remembers signed-out token ids until they would have expired.
// Redis is preferred; without it entries live in process memory.
type Revocations struct {
	rc  *redis.Client
	mu  sync.Mutex
	mem map[string]time.Time
	now func() time.Time
}

// NewRevocations returns a registry backed by rc, or by memory when rc is nil.
func NewRevocations(rc *redis.Client) *Revocations {
	return &Revocations{rc: rc, mem: map[string]time.Time{}, now: time.Now}
}

// Revoke marks id as revoked until expiresAt.
func (r *Revocations) Revoke(ctx context.Context, id string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if r.rc != nil {
		return r.rc.Set(ctx, revokedKeyPrefix+id, "1", ttl).Err()
	}
	r.mu.Lock()
	r.mem[id] = expiresAt
	r.mu.Unlock()
	return nil
}

// Revoked reports whether id was revoked. Redis failures count as not revoked.
func (r *Revocations) Revoked(ctx context.Context, id string) bool {
	if r.rc != nil {
		n, err := r.rc.Exists(ctx, revokedKeyPrefix+id).Result()
		return err == nil && n > 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.mem[id]
	if !ok {
		return false
	}
	if r.now().After(exp) {
		delete(r.mem, id)
		return false
	}
	return true
}
