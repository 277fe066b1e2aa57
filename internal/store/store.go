package store

import (
	"context"
	"time"
)

// Store is the key-value contract every stateful component goes through.
// Cursors, seen-sets, counters, locks and the outcome existence flag all
// live behind this interface, never in process memory across invocations.
// Every read-then-write on these keys may race with another invocation;
// callers rely on SetNX guards and idempotent writes, not local mutexes.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, key string) error
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRange(ctx context.Context, key string) ([]string, error)
}
