// Package cache is the capability for transient keyed state: one-time login
// codes and the short-lived seen-event marker in front of the payment
// webhook. Every entry expires, and check-and-consume is atomic, so the
// backing store can be swapped without affecting correctness.
package cache

import (
	"context"
	"time"
)

type Store interface {
	// Put stores val under key for at most ttl.
	Put(ctx context.Context, key, val string, ttl time.Duration) error

	// Add stores val under key only when the key is absent. It reports
	// whether the entry was newly added.
	Add(ctx context.Context, key, val string, ttl time.Duration) (bool, error)

	// TakeIfMatch atomically deletes the entry when its value equals val,
	// reporting whether it matched. A consumed entry can never match twice.
	TakeIfMatch(ctx context.Context, key, val string) (bool, error)
}
