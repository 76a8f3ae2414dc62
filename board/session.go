package board

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cppla/discourse/events"
	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/models"
	"github.com/cppla/discourse/utils"
)

// SessionResult is the outcome of Ensure. On failure only Banner is set.
type SessionResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
	Created   bool
	Banner    string
}

// OK reports whether an identity is available.
func (r SessionResult) OK() bool {
	return r.User != nil && r.Token != ""
}

// Bootstrapper makes sure every reader has an anonymous identity.
type Bootstrapper struct {
	auth   gateway.Auth
	events events.Publisher

	mu  sync.Mutex
	sub gateway.Subscription
}

// NewBootstrapper returns a bootstrapper over auth. pub may be nil.
func NewBootstrapper(auth gateway.Auth, pub events.Publisher) *Bootstrapper {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Bootstrapper{auth: auth, events: pub}
}

// Ensure reuses the session behind token when it is still live, otherwise signs in anonymously.
// Any failure yields MsgAuthFailed and is not retried.
func (b *Bootstrapper) Ensure(ctx context.Context, token string) SessionResult {
	if token != "" {
		user, err := b.auth.GetUser(ctx, token)
		if err == nil {
			return SessionResult{User: user, Token: token}
		}
		if !errors.Is(err, gateway.ErrInvalidSession) {
			utils.Sugar.Errorw("check session", "error", err)
			return SessionResult{Banner: MsgAuthFailed}
		}
	}
	sess, err := b.auth.SignInAnonymously(ctx)
	if err != nil {
		utils.Sugar.Errorw("anonymous sign-in", "error", err)
		return SessionResult{Banner: MsgAuthFailed}
	}
	utils.Sugar.Debugw("anonymous user signed in", "user_id", sess.User.ID)
	return SessionResult{User: &sess.User, Token: sess.AccessToken, ExpiresAt: sess.ExpiresAt, Created: true}
}

// Start subscribes to auth state changes until Stop. Calling Start twice keeps one subscription.
func (b *Bootstrapper) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub != nil {
		return
	}
	b.sub = b.auth.OnAuthStateChange(func(ev gateway.AuthEvent) {
		utils.Sugar.Infow("auth state changed", "event", ev.Type, "user_id", ev.UserID)
		subject := events.AuthPrefix + "." + strings.ToLower(string(ev.Type))
		if err := b.events.Publish(context.Background(), events.Event{Subject: subject, UserID: ev.UserID, At: ev.At}); err != nil {
			utils.Sugar.Warnw("publish auth event", "error", err)
		}
	})
}

// Stop releases the subscription.
func (b *Bootstrapper) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub != nil {
		b.sub.Unsubscribe()
		b.sub = nil
	}
}
