package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	keys   map[string]any
	ttls   map[string]time.Duration
	setErr error
}

func newMemStore() *memStore {
	return &memStore{keys: map[string]any{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, held := m.keys[key]; held {
		return false, nil
	}
	m.keys[key], m.ttls[key] = value, ttl
	return true, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func (m *memStore) IdempotencyKey(scope, id string) string {
	return "sx:idempotency:" + scope + ":" + id
}

const inbox = "notification-inbox"

func newClaims(t *testing.T, s *memStore) *Claims {
	t.Helper()
	c, err := NewClaims(s, 48*time.Hour)
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return c
}

func TestClaimIsScopedPerConsumer(t *testing.T) {
	s := newMemStore()
	claims := newClaims(t, s)
	ctx := context.Background()
	id := uuid.New()

	first, err := claims.Claim(ctx, inbox, id)
	require.NoError(t, err)
	assert.True(t, first)

	key := "sx:idempotency:evt:notification-inbox:" + id.String()
	assert.Equal(t, "2026-01-02T03:04:05Z", s.keys[key])
	assert.Equal(t, 48*time.Hour, s.ttls[key])

	again, err := claims.Claim(ctx, inbox, id)
	require.NoError(t, err)
	assert.False(t, again)

	other, err := claims.Claim(ctx, "audit", id)
	require.NoError(t, err)
	assert.True(t, other)
}

func TestReleaseReopensTheClaim(t *testing.T) {
	claims := newClaims(t, newMemStore())
	ctx := context.Background()
	id := uuid.New()

	_, err := claims.Claim(ctx, inbox, id)
	require.NoError(t, err)
	require.NoError(t, claims.Release(ctx, inbox, id))

	again, err := claims.Claim(ctx, inbox, id)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestClaimValidation(t *testing.T) {
	s := newMemStore()
	claims := newClaims(t, s)
	ctx := context.Background()

	_, err := claims.Claim(ctx, "", uuid.New())
	assert.ErrorIs(t, err, ErrConsumerRequired)
	assert.ErrorIs(t, claims.Release(ctx, inbox, uuid.Nil), ErrEventIDRequired)

	s.setErr = errors.New("redis down")
	_, err = claims.Claim(ctx, inbox, uuid.New())
	assert.EqualError(t, err, "redis down")

	_, err = NewClaims(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewClaims(s, -time.Second)
	assert.Error(t, err)
}
