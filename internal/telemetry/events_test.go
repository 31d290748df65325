package telemetry

import "testing"

func TestRingRecentBeforeFull(t *testing.T) {
	r := NewRing(4)
	r.Record(Event{Kind: EventWritten, FunctionID: "f1"})
	r.Record(Event{Kind: EventFailed, FunctionID: "f2"})
	got := r.Recent()
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].FunctionID != "f1" || got[1].FunctionID != "f2" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestRingWrapsAfterCapacity(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Record(Event{Kind: EventWritten, FunctionID: string(rune('a' + i))})
	}
	got := r.Recent()
	if len(got) != 3 {
		t.Fatalf("expected ring capped at 3, got %d", len(got))
	}
	if got[len(got)-1].FunctionID != "e" {
		t.Fatalf("expected most recent event last, got %+v", got)
	}
}
