package repository

import (
	"context"
	"time"

	"crosspost/domain/model"
)

// IOAuthTaskStore is the shared short-lived store for consent-flow state.
// Entries expire by TTL; a missing entry means the flow expired.
type IOAuthTaskStore interface {
	Put(ctx context.Context, task *model.OAuthTask, ttl time.Duration) error
	Get(ctx context.Context, taskID string) (*model.OAuthTask, error)
	// Resolve atomically swaps a pending task to the given terminal state and
	// extends its TTL. When another writer already resolved it, swapped is
	// false and current carries the stored terminal task.
	Resolve(ctx context.Context, taskID string, terminal *model.OAuthTask, extend time.Duration) (swapped bool, current *model.OAuthTask, err error)
}

// ILockStore provides TTL-bounded locks shared across process instances. A
// crashed holder releases by expiry, never by deadlock.
type ILockStore interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
