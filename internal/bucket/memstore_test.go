package bucket

import (
	"context"
	"testing"
)

func TestMemStoreReadMissing(t *testing.T) {
	s := NewMemStore()
	_, err := s.Read(context.Background(), "missing.json")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemStoreWriteThenRead(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	if err := s.Write(ctx, "a.json", []byte(`{"x":1}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := s.Read(ctx, "a.json")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != `{"x":1}` {
		t.Fatalf("got %s", got)
	}
}

func TestMemStoreListPrefix(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	_ = s.Write(ctx, "schedule_f1.json", []byte("{}"))
	_ = s.Write(ctx, "schedule_f2.json", []byte("{}"))
	_ = s.Write(ctx, "static_config.json", []byte("{}"))
	names, err := s.List(ctx, "schedule_")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d: %v", len(names), names)
	}
}

func TestMemStoreDeleteIsIdempotent(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	_ = s.Write(ctx, "a.json", []byte("{}"))
	if err := s.Delete(ctx, "a.json"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "a.json"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	if _, err := s.Read(ctx, "a.json"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
