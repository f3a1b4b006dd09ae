// Package kv provides the persistent key-value store the cart state is
// saved to. Values are JSON blobs addressed by short string keys; the
// store must survive process restarts when backed by a durable backend.
package kv

import "context"

// Keys under which the cart persists its state.
const (
	KeyCart   = "cart"
	KeyCoupon = "coupon"
)

// Store is the persistence boundary. Get reports ok=false when the key
// has never been set or was removed.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
