// Package catalog loads and serves the static region catalog (C1): per
// region hardware power envelopes, PUE, egress pricing and GPU presence.
// The catalog is read once at process startup and never mutated; a load
// failure is fatal: a malformed catalog row means every downstream score
// would be computed against bad hardware assumptions.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iosl-sustainability/carbon-scheduler/internal/bucket"
	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
)

const ObjectName = "static_config.json"

// Catalog is an immutable, read-only view of the region catalog.
type Catalog struct {
	entries map[string]model.RegionCatalogEntry
}

// Load fetches and parses the catalog from the bucket. Callers at process
// startup should treat a non-nil error as fatal.
func Load(ctx context.Context, store bucket.Store) (*Catalog, error) {
	raw, err := store.Read(ctx, ObjectName)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", ObjectName, err)
	}
	var rows []model.RegionCatalogEntry
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", ObjectName, err)
	}
	entries := make(map[string]model.RegionCatalogEntry, len(rows))
	for _, row := range rows {
		if row.Region == "" {
			return nil, fmt.Errorf("catalog: entry with empty region key")
		}
		if err := row.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: region %s: %w", row.Region, err)
		}
		entries[row.Region] = row
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog: no regions loaded from %s", ObjectName)
	}
	return &Catalog{entries: entries}, nil
}

// Entry returns the catalog row for a region.
func (c *Catalog) Entry(region string) (model.RegionCatalogEntry, bool) {
	e, ok := c.entries[region]
	return e, ok
}

// ZoneOf returns the carbon zone key backing a region.
func (c *Catalog) ZoneOf(region string) (string, bool) {
	e, ok := c.entries[region]
	if !ok {
		return "", false
	}
	return e.ZoneKey, true
}

// HasGPU reports whether a region has GPU hardware.
func (c *Catalog) HasGPU(region string) bool {
	e, ok := c.entries[region]
	return ok && e.HasGPU
}

// EgressRate returns the USD/GB egress price from region to sourceRegion.
func (c *Catalog) EgressRate(region, sourceRegion string) (float64, bool) {
	e, ok := c.entries[region]
	if !ok {
		return 0, false
	}
	if region == sourceRegion {
		return 0, true
	}
	rate, ok := e.EgressUSDPerGBToSource[sourceRegion]
	return rate, ok
}

// Regions returns the set of known catalog region keys.
func (c *Catalog) Regions() map[string]bool {
	out := make(map[string]bool, len(c.entries))
	for k := range c.entries {
		out[k] = true
	}
	return out
}

// Len returns the number of loaded regions.
func (c *Catalog) Len() int { return len(c.entries) }
