// Package sqlstore is the self-hosted gateway: posts and comments in a gorm
// database (postgres or mysql), anonymous sessions as signed JWTs, and
// uploaded objects on local disk.
package sqlstore

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/models"
)

// Options configures a Store.
type Options struct {
	JWTSecret     string
	SessionTTL    time.Duration
	UploadDir     string
	PublicBaseURL string
	// Redis holds revoked sessions; nil keeps them in process memory.
	Redis *redis.Client
}

// Store implements gateway.Gateway on top of gorm.
type Store struct {
	gateway.Notifier

	db      *gorm.DB
	tokens  *TokenIssuer
	revoked *Revocations
	files   *DiskStorage
}

// New wires a Store around an open database handle.
func New(db *gorm.DB, opts Options) (*Store, error) {
	if opts.JWTSecret == "" {
		return nil, errors.New("sqlstore: jwt secret is required")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	return &Store{
		db:      db,
		tokens:  NewTokenIssuer(opts.JWTSecret, opts.SessionTTL),
		revoked: NewRevocations(opts.Redis),
		files:   NewDiskStorage(opts.UploadDir, opts.PublicBaseURL, db),
	}, nil
}

// Migrate creates or extends the tables the store needs.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}, &models.StoredObject{})
}

var _ gateway.Gateway = (*Store)(nil)

// translate maps driver errors onto gateway errors so callers see one taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gateway.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		status := http.StatusInternalServerError
		switch pgErr.Code {
		case "23503", "23505":
			status = http.StatusConflict
		case "22P02", "42703":
			status = http.StatusBadRequest
		}
		return &gateway.Error{Status: status, Code: pgErr.Code, Message: pgErr.Message}
	}
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return &gateway.Error{Status: http.StatusConflict, Message: err.Error()}
	}
	return fmt.Errorf("sqlstore: %w", err)
}
