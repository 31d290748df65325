package registry

import (
	"context"
	"testing"

	"github.com/iosl-sustainability/carbon-scheduler/internal/bucket"
)

func TestLoadMixedDescriptors(t *testing.T) {
	store := bucket.NewMemStore()
	doc := `[
		{"kind":"structured","metadata":{"function_id":"f1","allowed_regions":["us-east1"],"weight_carbon":1}},
		{"kind":"freetext","text":"a small nightly report generator, no GPU needed"}
	]`
	if err := store.Write(context.Background(), ObjectName, []byte(doc)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	descriptors, err := Load(context.Background(), store)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(descriptors))
	}
	if descriptors[0].Kind != KindStructured || descriptors[0].Metadata.FunctionID != "f1" {
		t.Fatalf("unexpected first descriptor: %+v", descriptors[0])
	}
	if descriptors[1].Kind != KindFreeText || descriptors[1].Text == "" {
		t.Fatalf("unexpected second descriptor: %+v", descriptors[1])
	}
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	store := bucket.NewMemStore()
	doc := `[{"kind":"binary","text":"???"}]`
	_ = store.Write(context.Background(), ObjectName, []byte(doc))
	if _, err := Load(context.Background(), store); err == nil {
		t.Fatal("expected error for unknown descriptor kind")
	}
}

func TestLoadRejectsStructuredWithoutFunctionID(t *testing.T) {
	store := bucket.NewMemStore()
	doc := `[{"kind":"structured","metadata":{"allowed_regions":["us-east1"]}}]`
	_ = store.Write(context.Background(), ObjectName, []byte(doc))
	if _, err := Load(context.Background(), store); err == nil {
		t.Fatal("expected error for structured descriptor missing function_id")
	}
}
