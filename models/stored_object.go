package models

import "time"

// StoredObject records a file written by the local object store so its public URL can be resolved.
type StoredObject struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Bucket      string    `gorm:"index:idx_object_bucket_name,unique;size:64;not null" json:"bucket"`
	Name        string    `gorm:"index:idx_object_bucket_name,unique;size:255;not null" json:"name"`
	FilePath    string    `gorm:"size:1024;not null" json:"file_path"`
	ContentType string    `gorm:"size:128" json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}
