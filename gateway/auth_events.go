package gateway

import (
	"sync"
	"time"
)

// AuthEventType names a session transition.
type AuthEventType string

const (
	EventSignedIn  AuthEventType = "SIGNED_IN"
	EventSignedOut AuthEventType = "SIGNED_OUT"
)

// AuthEvent is delivered to OnAuthStateChange subscribers.
type AuthEvent struct {
	Type   AuthEventType `json:"type"`
	UserID string        `json:"user_id"`
	At     time.Time     `json:"at"`
}

// Subscription is released with Unsubscribe. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// Notifier fans auth events out to subscribers. Gateways embed it.
type Notifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(AuthEvent)
}

// OnAuthStateChange registers fn until the returned subscription is released.
func (n *Notifier) OnAuthStateChange(fn func(AuthEvent)) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = map[int]func(AuthEvent){}
	}
	n.nextID++
	id := n.nextID
	n.subs[id] = fn
	return &subscription{release: func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}}
}

// Emit delivers ev synchronously to every current subscriber.
func (n *Notifier) Emit(ev AuthEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	n.mu.RLock()
	fns := make([]func(AuthEvent), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Subscribers reports how many subscriptions are live.
func (n *Notifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

type subscription struct {
	once    sync.Once
	release func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.release)
}
