package cache

import (
	"context"
	"time"
)

// Store is an explicit TTL cache injected into call sites. Invalidation
// is always explicit (Delete/Flush); there is no ambient package-level
// cache state anywhere in the service.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Flush(ctx context.Context) error
}
