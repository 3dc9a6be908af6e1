package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrCacheMiss   = errors.New("cache: key not found")
	ErrLockNotHeld = errors.New("cache: lock not held by token")
)

// Service defines cache operations interface. Values are stored as JSON.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// Get decodes the value into dest or returns ErrCacheMiss.
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	// TryLock acquires key for ttl. The returned token must be passed to Unlock.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Unlock releases key only if it is still held by token.
	Unlock(ctx context.Context, key, token string) error
	Close() error
}

// Key joins a namespace and its parts with ':'.
func Key(namespace string, parts ...string) string {
	return strings.Join(append([]string{namespace}, parts...), ":")
}
