package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an anonymous identity. It carries no profile; IsFaculty is set out-of-band.
type User struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	IsAnonymous bool      `gorm:"not null;default:true" json:"is_anonymous"`
	IsFaculty   bool      `gorm:"not null;default:false" json:"is_faculty"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate hook ensures identifiers and timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	return nil
}

// Session binds an access token to the identity it was issued for.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}
