// Package plancache implements C7: reusing a previously written schedule
// when the function's metadata and forecast horizon are unchanged, keyed
// by a SHA-256 hash of the canonical plan cache key (§3, §4.6).
package plancache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iosl-sustainability/carbon-scheduler/internal/bucket"
	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
)

// MaxAge is the maximum age of a cached schedule before it is treated as
// stale, per §4.6.
const MaxAge = 7 * 24 * time.Hour

const cachePrefix = "plancache/"

func objectName(keyHash string) string {
	return cachePrefix + keyHash + ".json"
}

// Cache reads and writes cached schedules through the bucket store.
type Cache struct {
	Store bucket.Store
}

func New(store bucket.Store) *Cache {
	return &Cache{Store: store}
}

// Lookup returns the cached schedule for key if present and not older than
// MaxAge. A miss (not found, or stale) returns ok=false without error.
func (c *Cache) Lookup(ctx context.Context, key model.PlanCacheKey, now time.Time) (model.Schedule, bool, error) {
	hash, err := key.Key()
	if err != nil {
		return model.Schedule{}, false, fmt.Errorf("plancache: compute key: %w", err)
	}
	raw, err := c.Store.Read(ctx, objectName(hash))
	if errors.Is(err, bucket.ErrNotFound) {
		return model.Schedule{}, false, nil
	}
	if err != nil {
		return model.Schedule{}, false, fmt.Errorf("plancache: read: %w", err)
	}
	var sched model.Schedule
	if err := json.Unmarshal(raw, &sched); err != nil {
		return model.Schedule{}, false, fmt.Errorf("plancache: decode: %w", err)
	}
	if now.Sub(sched.GeneratedAtUTC) > MaxAge {
		return model.Schedule{}, false, nil
	}
	return sched, true, nil
}

// Put persists sched under key's hash for future lookups.
func (c *Cache) Put(ctx context.Context, key model.PlanCacheKey, sched model.Schedule) error {
	hash, err := key.Key()
	if err != nil {
		return fmt.Errorf("plancache: compute key: %w", err)
	}
	raw, err := json.Marshal(sched)
	if err != nil {
		return fmt.Errorf("plancache: encode: %w", err)
	}
	return c.Store.Write(ctx, objectName(hash), raw)
}
