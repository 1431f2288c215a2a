package ledger

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/docmill/docmill/internal/models"
)

// Firestore keeps one usage document per user in a collection. Increments
// run inside a Firestore transaction, which retries on contention, so two
// concurrent increments against the same prior total always both land.
type Firestore struct {
	client     *firestore.Client
	collection string
}

func NewFirestore(client *firestore.Client, collection string) *Firestore {
	return &Firestore{client: client, collection: collection}
}

func (l *Firestore) Increment(ctx context.Context, userID string, delta int64) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: empty user id", ErrUnavailable)
	}
	if delta <= 0 {
		return 0, fmt.Errorf("%w: delta must be positive, got %d", ErrUnavailable, delta)
	}

	ref := l.client.Collection(l.collection).Doc(userID)

	var total int64
	err := l.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var rec models.UsageRecord
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			if err := snap.DataTo(&rec); err != nil {
				return fmt.Errorf("failed to decode usage record: %w", err)
			}
		case status.Code(err) == codes.NotFound:
			// First operation for this user; record is created below.
		default:
			return err
		}

		rec.UserID = userID
		rec.TotalCount += delta
		rec.UpdatedAt = time.Now()
		total = rec.TotalCount
		return tx.Set(ref, rec)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return total, nil
}
