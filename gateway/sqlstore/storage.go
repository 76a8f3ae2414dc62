package sqlstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/models"
)

// DiskStorage writes objects under root/<bucket>/<name> and serves them from baseURL/storage.
type DiskStorage struct {
	root    string
	baseURL string
	db      *gorm.DB
}

// NewDiskStorage returns a disk store. db, when non-nil, receives a registry row per object.
func NewDiskStorage(root, baseURL string, db *gorm.DB) *DiskStorage {
	if root == "" {
		root = filepath.Join(".", "static", "storage")
	}
	return &DiskStorage{root: root, baseURL: strings.TrimRight(baseURL, "/"), db: db}
}

// Upload implements gateway.Storage. Existing objects are never overwritten.
func (d *DiskStorage) Upload(ctx context.Context, bucket, name string, body io.Reader, contentType string) error {
	if !safeSegment(bucket) || !safeSegment(name) {
		return &gateway.Error{Status: 400, Message: fmt.Sprintf("invalid object path %s/%s", bucket, name)}
	}
	dir := filepath.Join(d.root, bucket)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create bucket directory: %w", err)
	}
	dst := filepath.Join(dir, name)
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return &gateway.Error{Status: 409, Message: "object already exists"}
		}
		return fmt.Errorf("create object: %w", err)
	}
	written, err := io.Copy(out, body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("write object: %w", err)
	}
	if d.db == nil {
		return nil
	}
	abs, _ := filepath.Abs(dst)
	rec := models.StoredObject{Bucket: bucket, Name: name, FilePath: abs, ContentType: contentType, Size: written}
	if err := d.db.WithContext(ctx).Create(&rec).Error; err != nil {
		_ = os.Remove(dst)
		return translate(err)
	}
	return nil
}

// PublicURL implements gateway.Storage.
func (d *DiskStorage) PublicURL(bucket, name string) string {
	return fmt.Sprintf("%s/storage/%s/%s", d.baseURL, bucket, name)
}

// Root is the directory served under /storage.
func (d *DiskStorage) Root() string {
	return d.root
}

func safeSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`) && filepath.Base(s) == s
}

// Upload implements gateway.Storage.
func (s *Store) Upload(ctx context.Context, bucket, name string, body io.Reader, contentType string) error {
	return s.files.Upload(ctx, bucket, name, body, contentType)
}

// PublicURL implements gateway.Storage.
func (s *Store) PublicURL(bucket, name string) string {
	return s.files.PublicURL(bucket, name)
}

// StorageRoot is the directory the HTTP layer serves under /storage.
func (s *Store) StorageRoot() string {
	return s.files.Root()
}
