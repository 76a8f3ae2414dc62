// Package events publishes board activity so other services can follow it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects, relative to the configured prefix.
const (
	PostCreated    = "posts.created"
	PostUpdated    = "posts.updated"
	PostDeleted    = "posts.deleted"
	PostVoted      = "posts.voted"
	PostViewed     = "posts.viewed"
	CommentCreated = "comments.created"
	AuthPrefix     = "auth"
)

// Event is the JSON body of every message.
type Event struct {
	Subject string                 `json:"subject"`
	PostID  string                 `json:"post_id,omitempty"`
	UserID  string                 `json:"user_id,omitempty"`
	At      time.Time              `json:"at"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close()                              {}

// NATSPublisher sends events as core NATS messages under prefix.<subject>.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// Connect dials url and returns a publisher.
func Connect(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("discourse"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{nc: nc, prefix: prefix}, nil
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.nc.Publish(Subject(p.prefix, ev.Subject), data)
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	_ = p.nc.Drain()
}

// Subject joins prefix and name with a dot, skipping an empty prefix.
func Subject(prefix, name string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Close implements Publisher.
func (r *Recorder) Close() {}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Subjects lists the subjects published so far, in order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Subject
	}
	return out
}
