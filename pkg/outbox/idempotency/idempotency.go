// Package idempotency dedupes pub/sub redeliveries. Pub/sub delivers at
// least once; a claim in redis turns that into effectively once per
// consumer for as long as the key lives.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/surplusx-backend/pkg/redis"
)

// Keys land under sx:idempotency:evt:<consumer>:<event_id>.
const scopePrefix = "evt:"

var (
	ErrConsumerRequired = errors.New("idempotency: consumer name required")
	ErrEventIDRequired  = errors.New("idempotency: event id required")
)

type store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

var _ store = (redis.IdempotencyStore)(nil)

// Claims hands out one claim per (consumer, event). A ttl of zero keeps
// claims forever.
type Claims struct {
	store store
	ttl   time.Duration
	now   func() time.Time
}

func NewClaims(s store, ttl time.Duration) (*Claims, error) {
	switch {
	case s == nil:
		return nil, errors.New("idempotency: store required")
	case ttl < 0:
		return nil, errors.New("idempotency: negative ttl")
	}
	return &Claims{store: s, ttl: ttl, now: time.Now}, nil
}

// Claim is true for the first caller only. Anyone else should ack the
// delivery without doing the work again.
func (c *Claims) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := c.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	// the value is informational; it records when the claim was taken
	return c.store.SetNX(ctx, key, c.now().UTC().Format(time.RFC3339), c.ttl)
}

// Release gives a claim back after the work failed so the redelivery runs.
func (c *Claims) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := c.key(consumer, eventID)
	if err != nil {
		return err
	}
	return c.store.Del(ctx, key)
}

func (c *Claims) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", ErrConsumerRequired
	}
	if eventID == uuid.Nil {
		return "", ErrEventIDRequired
	}
	return c.store.IdempotencyKey(scopePrefix+consumer, eventID.String()), nil
}
