// Package gateway describes the remote data service the board talks to:
// tabular posts/comments, object storage and anonymous authentication.
// Every call is one independent request; there are no cross-entity
// transactions and no batching beyond multi-row inserts.
package gateway

import (
	"context"
	"io"

	"github.com/cppla/discourse/models"
)

// Table names as exposed by the gateway.
const (
	TablePosts    = "posts"
	TableComments = "comments"
)

// Posts is the posts collection.
type Posts interface {
	SelectPosts(ctx context.Context, q Query) ([]models.Post, error)
	InsertPosts(ctx context.Context, posts ...*models.Post) error
	// UpdatePosts applies values to every row matching where and returns the number of rows written.
	UpdatePosts(ctx context.Context, values map[string]interface{}, where ...Filter) (int64, error)
	// DeletePosts removes matching rows (and their comments) and returns the number of posts removed.
	DeletePosts(ctx context.Context, where ...Filter) (int64, error)
}

// Comments is the comments collection.
type Comments interface {
	SelectComments(ctx context.Context, q Query) ([]models.Comment, error)
	InsertComments(ctx context.Context, comments ...*models.Comment) error
}

// Storage is a named object store with public URLs.
type Storage interface {
	Upload(ctx context.Context, bucket, name string, body io.Reader, contentType string) error
	PublicURL(bucket, name string) string
}

// Auth issues and resolves anonymous sessions.
type Auth interface {
	SignInAnonymously(ctx context.Context) (*models.Session, error)
	// GetUser resolves an access token; ErrInvalidSession means the token is unknown, expired or revoked.
	GetUser(ctx context.Context, accessToken string) (*models.User, error)
	SignOut(ctx context.Context, accessToken string) error
	OnAuthStateChange(fn func(AuthEvent)) Subscription
}

// Gateway is the full surface consumed by the board.
type Gateway interface {
	Posts
	Comments
	Storage
	Auth
}

type accessTokenKey struct{}

// WithAccessToken attaches the caller's session token so gateway calls run as that identity.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken returns the session token attached to ctx, if any.
func AccessToken(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}
