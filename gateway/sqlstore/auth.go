package sqlstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/models"
)

// SignInAnonymously implements gateway.Auth: it registers a fresh identity and signs a token for it.
func (s *Store) SignInAnonymously(ctx context.Context) (*models.Session, error) {
	user := models.User{IsAnonymous: true}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, translate(err)
	}
	token, claims, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	s.Emit(gateway.AuthEvent{Type: gateway.EventSignedIn, UserID: user.ID})
	return &models.Session{AccessToken: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

// GetUser implements gateway.Auth.
func (s *Store) GetUser(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		return nil, gateway.ErrInvalidSession
	}
	if s.revoked.Revoked(ctx, claims.ID) {
		return nil, gateway.ErrInvalidSession
	}
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", claims.UserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gateway.ErrInvalidSession
		}
		return nil, translate(err)
	}
	return &user, nil
}

// SignOut implements gateway.Auth. The token stays revoked until it would have expired.
func (s *Store) SignOut(ctx context.Context, accessToken string) error {
	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		return gateway.ErrInvalidSession
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	s.Emit(gateway.AuthEvent{Type: gateway.EventSignedOut, UserID: claims.UserID})
	return nil
}
