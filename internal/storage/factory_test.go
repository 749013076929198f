package storage

import (
	"context"
	"testing"
)

func TestNewStoreMemory(t *testing.T) {
	store, err := NewStore("memory", "")
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	if store == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestNewStoreUnsupported(t *testing.T) {
	_, err := NewStore("unknown", "")
	if err == nil {
		t.Fatal("expected unsupported store error")
	}
}

func TestOpenInitializesStore(t *testing.T) {
	store, err := Open(context.Background(), "", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.SaveBatch(context.Background(), sampleBatch("b1", "2026-01-01T00:00:00Z")); err != nil {
		t.Fatalf("save after open: %v", err)
	}
	if err := CloseIfSupported(store); err != nil {
		t.Fatalf("close: %v", err)
	}
}
