// Package querycache caches serialized query results and throws the whole
// namespace away whenever the underlying data changes.
package querycache

import "context"

// Cache stores opaque query results keyed by a caller-built string. Entries
// live in numbered generations: EvictAll advances the generation, making
// every outstanding entry unreachable in one step. Get reports the
// generation the lookup observed; callers pass it back to Set so a
// repopulating write raced by an eviction lands in the dead generation
// instead of resurrecting stale rows in the live one.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, gen uint64, err error)
	Set(ctx context.Context, key string, value []byte, gen uint64) error
	EvictAll(ctx context.Context) error
}
