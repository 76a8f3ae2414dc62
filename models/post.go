package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post represents a discussion started by an anonymous community member.
type Post struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	UserID     string     `gorm:"index;size:36;not null" json:"user_id"`
	Title      string     `gorm:"size:255;not null" json:"title"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	Category   string     `gorm:"index;size:64;not null" json:"category"`
	Tags       TagList    `json:"tags"`
	ImageURL   *string    `gorm:"size:1024" json:"image_url"`
	ImageAlt   string     `gorm:"size:255" json:"image_alt"`
	YoutubeURL *string    `gorm:"size:1024" json:"youtube_url"`
	Upvotes    int64      `gorm:"index;not null;default:0" json:"upvotes"`
	Views      int64      `gorm:"index;not null;default:0" json:"views"`
	Pinned     bool       `gorm:"not null;default:false" json:"pinned"`
	SecretKey  string     `gorm:"size:36" json:"secret_key,omitempty"` // reserved, never read back
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  *time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
	Comments   []Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// BeforeCreate assigns an identifier when the caller did not provide one.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	return nil
}
