package postgrest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/models"
)

type authUser struct {
	ID          string    `json:"id"`
	IsAnonymous bool      `json:"is_anonymous"`
	CreatedAt   time.Time `json:"created_at"`
	AppMetadata struct {
		IsFaculty bool `json:"is_faculty"`
	} `json:"app_metadata"`
}

func (u authUser) model() models.User {
	return models.User{ID: u.ID, IsAnonymous: u.IsAnonymous, IsFaculty: u.AppMetadata.IsFaculty, CreatedAt: u.CreatedAt}
}

type authSession struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   int64    `json:"expires_in"`
	ExpiresAt   int64    `json:"expires_at"`
	User        authUser `json:"user"`
}

// SignInAnonymously implements gateway.Auth.
func (c *Client) SignInAnonymously(ctx context.Context) (*models.Session, error) {
	var out authSession
	res, err := c.authorized(ctx, c.anonKey).
		SetBody(map[string]interface{}{"data": map[string]interface{}{}}).
		SetResult(&out).
		Post("/auth/v1/signup")
	if err := check(res, err); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, errors.New("postgrest: sign-in returned no session")
	}
	expires := time.Unix(out.ExpiresAt, 0)
	if out.ExpiresAt == 0 {
		expires = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	c.Emit(gateway.AuthEvent{Type: gateway.EventSignedIn, UserID: out.User.ID})
	return &models.Session{AccessToken: out.AccessToken, ExpiresAt: expires, User: out.User.model()}, nil
}

// GetUser implements gateway.Auth.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*models.User, error) {
	var out authUser
	res, err := c.authorized(ctx, accessToken).SetResult(&out).Get("/auth/v1/user")
	if err := check(res, err); err != nil {
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) && (gwErr.Status == http.StatusUnauthorized || gwErr.Status == http.StatusForbidden) {
			return nil, gateway.ErrInvalidSession
		}
		return nil, err
	}
	user := out.model()
	return &user, nil
}

// SignOut implements gateway.Auth.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	var user authUser
	// Resolve first so the signed-out event carries the identity.
	if res, err := c.authorized(ctx, accessToken).SetResult(&user).Get("/auth/v1/user"); check(res, err) != nil {
		return gateway.ErrInvalidSession
	}
	res, err := c.authorized(ctx, accessToken).Post("/auth/v1/logout")
	if err := check(res, err); err != nil {
		return err
	}
	c.Emit(gateway.AuthEvent{Type: gateway.EventSignedOut, UserID: user.ID})
	return nil
}
