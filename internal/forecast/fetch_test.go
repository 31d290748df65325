package forecast

import (
	"context"
	"testing"
)

func TestFetchAllHistoricalModeNeverFails(t *testing.T) {
	f := NewFetcher(nil, 4, ModeHistorical)
	cf, failed := f.FetchAll(context.Background(), []string{"US-CA", "DE", "FR"})
	if len(failed) != 0 {
		t.Fatalf("expected no failures in historical mode, got %v", failed)
	}
	if len(cf.Zones) != 3 {
		t.Fatalf("expected 3 zones, got %d", len(cf.Zones))
	}
	for zone, zf := range cf.Zones {
		if len(zf.Points) != 24 {
			t.Fatalf("zone %s: expected 24 hourly points, got %d", zone, len(zf.Points))
		}
	}
}

func TestFetchAllEmptyZoneList(t *testing.T) {
	f := NewFetcher(nil, 4, ModeHistorical)
	cf, failed := f.FetchAll(context.Background(), nil)
	if len(failed) != 0 || len(cf.Zones) != 0 {
		t.Fatalf("expected empty result, got zones=%d failed=%v", len(cf.Zones), failed)
	}
}
