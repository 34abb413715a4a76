package transactions

import (
	"context"

	"github.com/google/uuid"
)

// ChangeFeed fans status changes of a transaction out to live listeners.
type ChangeFeed interface {
	Publish(ctx context.Context, change Change) error
	Subscribe(ctx context.Context, transactionID uuid.UUID) (Subscription, error)
}

// Subscription delivers changes for one transaction until closed.
type Subscription interface {
	Changes() <-chan Change
	Close() error
}
