package paymentwebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saudamarket/storefront-backend/pkg/redis"
)

const guardScope = "payment-webhook"

// IdempotencyGuard dedupes webhook deliveries with a SetNX marker. A marked
// delivery is dropped; the marker is removed again when processing fails so
// the gateway's retry gets another chance.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewIdempotencyGuard builds a guard with the given marker TTL.
func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &IdempotencyGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark marks the delivery, reporting true when it was already seen.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, deliveryID string) (bool, error) {
	if deliveryID == "" {
		return false, errors.New("delivery id is required")
	}
	key := g.store.IdempotencyKey(guardScope, deliveryID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete unmarks a delivery after a transient processing failure.
func (g *IdempotencyGuard) Delete(ctx context.Context, deliveryID string) error {
	if deliveryID == "" {
		return errors.New("delivery id is required")
	}
	key := g.store.IdempotencyKey(guardScope, deliveryID)
	return g.store.Del(ctx, key)
}
