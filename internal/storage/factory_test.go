package storage

import (
	"path/filepath"
	"testing"
)

func TestNewStoreKinds(t *testing.T) {
	store, err := NewStore("", "")
	if err != nil {
		t.Fatalf("default kind: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected memory store for empty kind, got %T", store)
	}

	store, err = NewStore("memory", "")
	if err != nil {
		t.Fatalf("memory kind: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	store, err = NewStore("file", filepath.Join(t.TempDir(), "proteus.json"))
	if err != nil {
		t.Fatalf("file kind: %v", err)
	}
	if _, ok := store.(*FileStore); !ok {
		t.Fatalf("expected file store, got %T", store)
	}
}

func TestDefaultStoreKindIsUsable(t *testing.T) {
	store, err := NewStore(DefaultStoreKind(), filepath.Join(t.TempDir(), "proteus.db"))
	if err != nil {
		t.Fatalf("default store kind %s: %v", DefaultStoreKind(), err)
	}
	if err := CloseIfSupported(store); err != nil {
		t.Fatalf("close default store: %v", err)
	}
}

func TestNewStoreUnknownKind(t *testing.T) {
	if _, err := NewStore("etcd", ""); err == nil {
		t.Fatal("expected error for unknown store kind")
	}
}

func TestCloseIfSupported(t *testing.T) {
	if err := CloseIfSupported(NewMemoryStore()); err != nil {
		t.Fatalf("close memory store: %v", err)
	}
	if err := CloseIfSupported(NewFileStore(filepath.Join(t.TempDir(), "proteus.json"))); err != nil {
		t.Fatalf("close file store: %v", err)
	}
}
