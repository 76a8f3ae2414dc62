package board

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DraftTTL is how long an untouched draft is kept.
const DraftTTL = 24 * time.Hour

// DraftStore keeps creation drafts between requests, scoped to their owner.
// Redis is preferred; without it drafts live in process memory.
type DraftStore struct {
	rc  *redis.Client
	ttl time.Duration

	mu        sync.Mutex
	mem       map[string]draftEntry
	now       func() time.Time
	lastSweep time.Time
}

type draftEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewDraftStore returns a store backed by rc, or by memory when rc is nil.
func NewDraftStore(rc *redis.Client, ttl time.Duration) *DraftStore {
	if ttl <= 0 {
		ttl = DraftTTL
	}
	return &DraftStore{rc: rc, ttl: ttl, mem: map[string]draftEntry{}, now: time.Now}
}

// sweepLocked drops expired in-memory drafts, at most once per minute. Callers hold s.mu.
func (s *DraftStore) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < time.Minute {
		return
	}
	s.lastSweep = now
	for k, e := range s.mem {
		if now.After(e.expiresAt) {
			delete(s.mem, k)
		}
	}
}

// Len reports how many drafts are held in process memory.
func (s *DraftStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mem)
}

func draftKey(owner, id string) string {
	return "draft:" + owner + ":" + id
}

// Save stores d under owner and refreshes its expiry.
func (s *DraftStore) Save(ctx context.Context, owner string, d Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	key := draftKey(owner, d.ID)
	if s.rc != nil {
		return s.rc.Set(ctx, key, data, s.ttl).Err()
	}
	s.mu.Lock()
	now := s.now()
	s.sweepLocked(now)
	s.mem[key] = draftEntry{data: data, expiresAt: now.Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

// Load returns owner's draft id, or ErrDraftNotFound.
func (s *DraftStore) Load(ctx context.Context, owner, id string) (Draft, error) {
	return s.fetch(ctx, owner, id, false)
}

// Claim removes owner's draft id and returns it. Of concurrent claims on one draft
// exactly one succeeds; the others get ErrDraftNotFound.
func (s *DraftStore) Claim(ctx context.Context, owner, id string) (Draft, error) {
	return s.fetch(ctx, owner, id, true)
}

func (s *DraftStore) fetch(ctx context.Context, owner, id string, take bool) (Draft, error) {
	var d Draft
	key := draftKey(owner, id)
	var data []byte
	if s.rc != nil {
		cmd := s.rc.Get(ctx, key)
		if take {
			cmd = s.rc.GetDel(ctx, key)
		}
		b, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			return d, ErrDraftNotFound
		}
		if err != nil {
			return d, err
		}
		data = b
	} else {
		s.mu.Lock()
		e, ok := s.mem[key]
		expired := ok && s.now().After(e.expiresAt)
		if take || expired {
			delete(s.mem, key)
		}
		ok = ok && !expired
		s.mu.Unlock()
		if !ok {
			return d, ErrDraftNotFound
		}
		data = e.data
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return d, err
	}
	return d, nil
}

// Delete removes a draft. Missing drafts are not an error.
func (s *DraftStore) Delete(ctx context.Context, owner, id string) error {
	key := draftKey(owner, id)
	if s.rc != nil {
		return s.rc.Del(ctx, key).Err()
	}
	s.mu.Lock()
	delete(s.mem, key)
	s.mu.Unlock()
	return nil
}
