package transactions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
)

func TestLocalFeedDeliversOnlyToMatchingTransaction(t *testing.T) {
	feed := NewLocalFeed()
	ctx := context.Background()
	target := uuid.New()

	sub, err := feed.Subscribe(ctx, target)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	_ = feed.Publish(ctx, Change{TransactionID: uuid.New(), Status: enums.TransactionStatusPaid})
	_ = feed.Publish(ctx, Change{TransactionID: target, Status: enums.TransactionStatusPaid, TotalValue: decimal.NewFromInt(67)})

	got := <-sub.Changes()
	if got.TransactionID != target {
		t.Fatalf("unexpected change %+v", got)
	}
	select {
	case extra := <-sub.Changes():
		t.Fatalf("unexpected extra change %+v", extra)
	default:
	}
}

func TestLocalFeedCloseUnsubscribes(t *testing.T) {
	feed := NewLocalFeed()
	id := uuid.New()
	sub, _ := feed.Subscribe(context.Background(), id)
	if feed.Subscribers(id) != 1 {
		t.Fatalf("expected one subscriber")
	}
	_ = sub.Close()
	_ = sub.Close()
	if feed.Subscribers(id) != 0 {
		t.Fatalf("expected subscription removed")
	}
	if _, ok := <-sub.Changes(); ok {
		t.Fatalf("expected closed channel")
	}
	if err := feed.Publish(context.Background(), Change{TransactionID: id}); err != nil {
		t.Fatalf("publish after close: %v", err)
	}
}
