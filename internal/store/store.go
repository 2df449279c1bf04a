// Package store is the idempotency store: a TTL-bounded key-value record
// per signal id, with an atomic reserve operation acting as the dedup
// gate. Backed by Redis; expiry is store-level, never an application
// sweep.
package store

import (
	"context"
	"errors"

	"github.com/walidk/tvrelay/internal/model"
)

// ErrUnavailable wraps any infrastructure fault talking to the store.
// Callers must abort the signal's processing on it: an unreachable store
// is never "not a duplicate".
var ErrUnavailable = errors.New("idempotency store unavailable")

// Store is the persistence contract used by the pipeline, the delivery
// engine and the pairs service.
type Store interface {
	// Exists reports whether a record for signalID is present.
	Exists(ctx context.Context, signalID string) (bool, error)

	// Reserve atomically writes rec under its signal id unless a record
	// already exists. It returns false without writing when the id is
	// already reserved; exactly one concurrent caller wins.
	Reserve(ctx context.Context, rec model.StoredSignal) (bool, error)

	// Get fetches a stored record, nil when absent or expired.
	Get(ctx context.Context, signalID string) (*model.StoredSignal, error)

	// UpdateStatus applies update to the stored record and writes it back
	// preserving the remaining TTL. Missing records are a no-op.
	UpdateStatus(ctx context.Context, signalID string, update func(*model.StoredSignal)) error

	// RecentSignals returns up to limit records indexed in the short-lived
	// recent set, used by status queries.
	RecentSignals(ctx context.Context, limit int) ([]model.StoredSignal, error)

	// GetConfig and SetConfig hold non-expiring configuration blobs such
	// as the enabled-pairs list.
	GetConfig(ctx context.Context, key string) ([]byte, error)
	SetConfig(ctx context.Context, key string, value []byte) error

	// Ping checks connectivity for health probes.
	Ping(ctx context.Context) error
}
