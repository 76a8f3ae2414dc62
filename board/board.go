// Package board implements the discussion board's read and write flows on
// top of a gateway: the filtered post list, the post detail view with its
// mutations, the multi-step creation flow and the anonymous session
// bootstrap.
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cppla/discourse/events"
	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/models"
	"github.com/cppla/discourse/utils"
)

// ImageBucket is the storage bucket for post images.
const ImageBucket = "post-images"

// Board bundles the gateway with the settings every flow shares.
type Board struct {
	gw     gateway.Gateway
	events events.Publisher
	bucket string
	now    func() time.Time

	background sync.WaitGroup
}

// Option customizes a Board.
type Option func(*Board)

// WithEvents publishes activity to p.
func WithEvents(p events.Publisher) Option {
	return func(b *Board) {
		if p != nil {
			b.events = p
		}
	}
}

// WithBucket overrides the image bucket.
func WithBucket(bucket string) Option {
	return func(b *Board) {
		if bucket != "" {
			b.bucket = bucket
		}
	}
}

// WithClock replaces the time source for edit timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

// New returns a Board reading and writing through gw.
func New(gw gateway.Gateway, opts ...Option) *Board {
	b := &Board{gw: gw, events: events.Nop{}, bucket: ImageBucket, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Wait blocks until view increments started by any PostView have finished.
func (b *Board) Wait() {
	b.background.Wait()
}

// Gateway exposes the underlying gateway.
func (b *Board) Gateway() gateway.Gateway {
	return b.gw
}

// CurrentUser resolves the identity attached to ctx.
func (b *Board) CurrentUser(ctx context.Context) (*models.User, error) {
	token := gateway.AccessToken(ctx)
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	user, err := b.gw.GetUser(ctx, token)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidSession) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	return user, nil
}

// ListPosts runs one list read.
func (b *Board) ListPosts(ctx context.Context, p ListParams) ([]models.Post, error) {
	p, err := p.Normalize()
	if err != nil {
		return nil, err
	}
	return b.gw.SelectPosts(ctx, BuildListQuery(p))
}

// Trending returns the most upvoted posts. Failures are logged and yield an empty strip.
func (b *Board) Trending(ctx context.Context) []models.Post {
	posts, err := b.gw.SelectPosts(ctx, TrendingQuery())
	if err != nil {
		utils.Sugar.Errorw("fetch trending posts", "error", err)
		return []models.Post{}
	}
	return posts
}

func (b *Board) publish(ctx context.Context, ev events.Event) {
	if err := b.events.Publish(ctx, ev); err != nil {
		utils.Sugar.Warnw("publish event", "subject", ev.Subject, "error", err)
	}
}
