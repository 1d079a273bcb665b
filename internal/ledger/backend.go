package ledger

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"
)

// Backend is a versioned key-value store with per-key history.
//
// Put and Delete are atomic per key. Nothing is atomic across keys.
type Backend interface {
	// Get returns the current value of key. ok is false when the key was
	// never written or its latest modification is a tombstone.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put replaces the current value of key and appends to its history.
	Put(ctx context.Context, key string, value []byte) error

	// Delete tombstones key. History is preserved.
	Delete(ctx context.Context, key string) error

	// Range yields live keys in [start, end) in key order. An empty start or
	// end leaves that side unbounded.
	Range(ctx context.Context, start, end string) iter.Seq2[KV, error]

	// History yields every modification of key in commit order.
	History(ctx context.Context, key string) iter.Seq2[Modification, error]

	// Close releases the backend.
	Close() error
}

// KV is one live key and its current value.
type KV struct {
	Key   string
	Value []byte
}

// Modification is one entry in a key's history.
type Modification struct {
	Seq       int64     `json:"seq"`
	TxID      string    `json:"tx_id"`
	Key       string    `json:"key"`
	Value     []byte    `json:"value,omitempty"` // nil for tombstones
	IsDelete  bool      `json:"is_delete"`
	Timestamp time.Time `json:"timestamp"`
	Submitter string    `json:"submitter"`
}

// ErrInvalidKey is returned for keys a backend cannot store.
var ErrInvalidKey = errors.New("invalid ledger key")

// ValidateKey rejects empty keys and keys containing NUL, which the prefix
// backends use as the key/sequence separator.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if strings.IndexByte(key, 0x00) >= 0 {
		return fmt.Errorf("%w: key %q contains NUL", ErrInvalidKey, key)
	}
	return nil
}

// InRange reports whether key falls inside [start, end) with empty bounds
// treated as unbounded.
func InRange(key, start, end string) bool {
	if start != "" && key < start {
		return false
	}
	if end != "" && key >= end {
		return false
	}
	return true
}
