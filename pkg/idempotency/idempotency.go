package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store is the Redis surface the delivery cache needs.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Manager remembers completed deliveries so exact redeliveries can be
// short-circuited. It is a cache: losing a key only costs a replay of an
// operation that is idempotent in the database anyway.
// Keys follow the `gtc:idempotency:delivery:<scope>:<id>` pattern.
type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager builds a delivery cache with the given TTL.
func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Seen reports whether the delivery was already completed.
func (m *Manager) Seen(ctx context.Context, scope string, parts ...string) (bool, error) {
	key, err := m.deliveryKey(scope, parts)
	if err != nil {
		return false, err
	}
	return m.store.Exists(ctx, key)
}

// Remember marks the delivery completed. Call only after the side effects committed.
func (m *Manager) Remember(ctx context.Context, scope string, parts ...string) error {
	key, err := m.deliveryKey(scope, parts)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, key, "1", m.ttl)
}

// Forget drops a remembered delivery.
func (m *Manager) Forget(ctx context.Context, scope string, parts ...string) error {
	key, err := m.deliveryKey(scope, parts)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) deliveryKey(scope string, parts []string) (string, error) {
	if scope == "" {
		return "", errors.New("scope is required")
	}
	if len(parts) == 0 {
		return "", errors.New("delivery id is required")
	}
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return "", errors.New("delivery id parts must be non-empty")
		}
	}
	return m.store.IdempotencyKey(fmt.Sprintf("delivery:%s", scope), strings.Join(parts, ":")), nil
}
