package pushinpaywebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	"github.com/angelmondragon/pixcheckout-backend/pkg/redis"
)

const guardScope = "pushinpay"

// IdempotencyGuard remembers which (pix id, status) deliveries were already applied.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &IdempotencyGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark returns true when the delivery was seen before.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, pixID string, status enums.TransactionStatus) (bool, error) {
	key, err := g.key(pixID, status)
	if err != nil {
		return false, err
	}
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete forgets a delivery so the provider retry is processed.
func (g *IdempotencyGuard) Delete(ctx context.Context, pixID string, status enums.TransactionStatus) error {
	key, err := g.key(pixID, status)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *IdempotencyGuard) key(pixID string, status enums.TransactionStatus) (string, error) {
	id := strings.ToLower(strings.TrimSpace(pixID))
	if id == "" {
		return "", errors.New("pix id is required")
	}
	return g.store.IdempotencyKey(guardScope, id+":"+string(status)), nil
}
