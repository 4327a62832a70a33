// Package store implements the abstract key-value/pub-sub contract the rest
// of the engine depends on. No component outside this package imports a
// Redis type directly — everything talks to the Store interface, so the
// backing service can change without touching room, player or gateway code.
package store

import (
	"context"
	"time"
)

// RecordTTL is applied to every PlayerGameState, Room and Player record.
const RecordTTL = time.Hour

// CacheTTL bounds how long a player_game:* read may be served from the
// in-process cache before it is re-fetched from the backing store.
const CacheTTL = 5 * time.Second

// Message is one delivered pub/sub payload.
type Message struct {
	Channel string
	Payload string
}

// Store is the full adapter contract from spec §4.6: a JSON-string
// key-value store, unordered sets, hash records, and channel pub/sub with
// pattern subscription. No method here leaks a vendor-specific type.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error

	SAdd(ctx context.Context, setKey, member string) error
	SRem(ctx context.Context, setKey, member string) error
	SMembers(ctx context.Context, setKey string) ([]string, error)

	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	Publish(ctx context.Context, channel, payload string) error

	// Subscribe opens a pattern subscription and invokes handler once per
	// delivered message until ctx is cancelled. It never returns (except on
	// ctx cancellation or an unrecoverable subscribe error), so callers run
	// it in its own goroutine.
	Subscribe(ctx context.Context, pattern string, handler func(Message)) error

	Close() error
}
