// Package ledger maintains the per-user document operation counters.
//
// Every backend guarantees the same contract: get-or-create on first use,
// atomic increment with no lost updates under concurrency, and a returned
// post-increment total. A naive read-then-write is not an acceptable
// implementation; each backend funnels the update through a storage-level
// atomic primitive or an exclusive critical section.
package ledger

import (
	"context"
	"errors"
)

// ErrUnavailable wraps every backend failure so callers can distinguish a
// ledger outage from a client error.
var ErrUnavailable = errors.New("usage ledger unavailable")

// Ledger records completed document operations per user.
type Ledger interface {
	// Increment adds delta (a positive count of operations just performed)
	// to userID's total, creating the record on first use, and returns the
	// post-increment total.
	Increment(ctx context.Context, userID string, delta int64) (int64, error)
}
