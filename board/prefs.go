package board

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Theme is the reader's color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

var ErrInvalidTheme = errors.New("theme must be light or dark")

// ParseTheme accepts light or dark.
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// PreferenceStore persists the theme per session owner. Redis is preferred; without it
// values live in process memory.
type PreferenceStore struct {
	rc  *redis.Client
	mu  sync.RWMutex
	mem map[string]Theme
}

// NewPreferenceStore returns a store backed by rc, or by memory when rc is nil.
func NewPreferenceStore(rc *redis.Client) *PreferenceStore {
	return &PreferenceStore{rc: rc, mem: map[string]Theme{}}
}

func themeKey(owner string) string {
	return "prefs:theme:" + owner
}

// Theme returns owner's theme, light when unset or unreadable.
func (s *PreferenceStore) Theme(ctx context.Context, owner string) Theme {
	if s.rc != nil {
		v, err := s.rc.Get(ctx, themeKey(owner)).Result()
		if err != nil {
			return ThemeLight
		}
		if t, err := ParseTheme(v); err == nil {
			return t
		}
		return ThemeLight
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.mem[owner]; ok {
		return t
	}
	return ThemeLight
}

// SetTheme stores t for owner.
func (s *PreferenceStore) SetTheme(ctx context.Context, owner string, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	if s.rc != nil {
		return s.rc.Set(ctx, themeKey(owner), string(t), 0).Err()
	}
	s.mu.Lock()
	s.mem[owner] = t
	s.mu.Unlock()
	return nil
}
