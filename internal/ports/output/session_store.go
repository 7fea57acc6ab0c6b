package output

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by SessionStore.Get for a missing key.
var ErrKeyNotFound = errors.New("session key not found")

// SessionStore is the persisted key/value store behind the session.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}
