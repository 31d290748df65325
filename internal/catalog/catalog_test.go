package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/iosl-sustainability/carbon-scheduler/internal/bucket"
	"github.com/iosl-sustainability/carbon-scheduler/internal/model"
)

func seedCatalog(t *testing.T, store *bucket.MemStore, rows []model.RegionCatalogEntry) {
	t.Helper()
	raw, err := json.Marshal(rows)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := store.Write(context.Background(), ObjectName, raw); err != nil {
		t.Fatalf("seed write: %v", err)
	}
}

func validRow(region string) model.RegionCatalogEntry {
	return model.RegionCatalogEntry{
		Region:     region,
		ZoneKey:    region + "-zone",
		CPUMinW:    10,
		CPUMaxW:    100,
		MemWPerGiB: 3,
		PUE:        1.2,
		HasGPU:     false,
		EgressUSDPerGBToSource: map[string]float64{"us-east1": 0.01},
	}
}

func TestLoadSucceeds(t *testing.T) {
	store := bucket.NewMemStore()
	seedCatalog(t, store, []model.RegionCatalogEntry{validRow("us-east1"), validRow("europe-west1")})
	c, err := Load(context.Background(), store)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 regions, got %d", c.Len())
	}
	if zone, ok := c.ZoneOf("us-east1"); !ok || zone != "us-east1-zone" {
		t.Fatalf("unexpected zone: %v %v", zone, ok)
	}
}

func TestLoadRejectsInvertedPowerRange(t *testing.T) {
	store := bucket.NewMemStore()
	bad := validRow("us-east1")
	bad.CPUMinW, bad.CPUMaxW = 100, 10
	seedCatalog(t, store, []model.RegionCatalogEntry{bad})
	if _, err := Load(context.Background(), store); err == nil {
		t.Fatal("expected error for inverted cpu power range")
	}
}

func TestLoadRejectsMissingObject(t *testing.T) {
	store := bucket.NewMemStore()
	if _, err := Load(context.Background(), store); err == nil {
		t.Fatal("expected error when static_config.json is absent")
	}
}

func TestEgressRateSameRegionIsZero(t *testing.T) {
	store := bucket.NewMemStore()
	seedCatalog(t, store, []model.RegionCatalogEntry{validRow("us-east1")})
	c, err := Load(context.Background(), store)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rate, ok := c.EgressRate("us-east1", "us-east1")
	if !ok || rate != 0 {
		t.Fatalf("expected zero egress within the same region, got %v %v", rate, ok)
	}
}
