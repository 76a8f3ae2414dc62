package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment represents a reply to a post. Comments are append-only.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"index;size:36;not null" json:"post_id"`
	UserID    string    `gorm:"index;size:36;not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsFaculty bool      `gorm:"not null;default:false" json:"is_faculty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	return nil
}
