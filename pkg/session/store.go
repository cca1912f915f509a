package session

import (
	"context"
	"errors"
	"time"
)

// Store is a session persistence backend.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save persists a session record, overwriting any previous one.
	Save(ctx context.Context, sessionID string, data []byte, expiresAt time.Time) error

	// Load returns (nil, nil) if the session doesn't exist or has expired.
	Load(ctx context.Context, sessionID string) ([]byte, error)

	// Delete removes a session. Missing sessions are not an error.
	Delete(ctx context.Context, sessionID string) error

	// Touch extends the expiry without rewriting the record.
	// Missing sessions are not an error.
	Touch(ctx context.Context, sessionID string, expiresAt time.Time) error

	// SaveAll persists several records, atomically where the backend allows.
	SaveAll(ctx context.Context, sessions map[string]Data) error

	// Close releases resources held by the store.
	Close() error
}

// Data is a serialized record with its expiry.
type Data struct {
	Data      []byte
	ExpiresAt time.Time
}

// ErrStoreClosed is returned when operations are attempted on a closed store.
var ErrStoreClosed = errors.New("session: store is closed")
