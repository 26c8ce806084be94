//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSQLiteStoreSetupAndScanRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "proteus.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	setup := sampleSetup()
	if err := store.SaveSetup(ctx, setup); err != nil {
		t.Fatalf("save setup: %v", err)
	}
	loaded, ok, err := store.LoadSetup(ctx)
	if err != nil {
		t.Fatalf("load setup: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted setup")
	}
	if !reflect.DeepEqual(loaded, setup) {
		t.Fatalf("roundtrip mismatch\nactual=%+v\nexpected=%+v", loaded, setup)
	}

	scan := sampleScan("scan-1", "2026-08-25T10:30:00Z")
	if err := store.SaveScan(ctx, scan); err != nil {
		t.Fatalf("save scan: %v", err)
	}
	loadedScan, ok, err := store.GetScan(ctx, scan.ID)
	if err != nil {
		t.Fatalf("get scan: %v", err)
	}
	if !ok || loadedScan.ID != scan.ID {
		t.Fatalf("expected scan %s, got ok=%t value=%+v", scan.ID, ok, loadedScan)
	}

	if _, ok, err := store.GetScan(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing scan, got ok=%t err=%v", ok, err)
	}
}

func TestSQLiteStoreListScansOrders(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "proteus.db"))
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	for _, scan := range []struct{ id, created string }{
		{"scan-old", "2026-08-24T08:00:00Z"},
		{"scan-new", "2026-08-25T09:00:00Z"},
		{"scan-mid", "2026-08-25T08:00:00Z"},
	} {
		if err := store.SaveScan(ctx, sampleScan(scan.id, scan.created)); err != nil {
			t.Fatalf("save %s: %v", scan.id, err)
		}
	}

	scans, err := store.ListScans(ctx)
	if err != nil {
		t.Fatalf("list scans: %v", err)
	}
	ids := make([]string, len(scans))
	for i, scan := range scans {
		ids[i] = scan.ID
	}
	want := []string{"scan-new", "scan-mid", "scan-old"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("unexpected order: actual=%v expected=%v", ids, want)
	}
}

func TestSQLiteStorePersistsSetupAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "proteus.db")

	first := NewSQLiteStore(dbPath)
	if err := first.Init(ctx); err != nil {
		t.Fatalf("first init: %v", err)
	}
	if err := first.SaveSetup(ctx, sampleSetup()); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}

	second := NewSQLiteStore(dbPath)
	if err := second.Init(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}
	t.Cleanup(func() {
		_ = second.Close()
	})

	loaded, ok, err := second.LoadSetup(ctx)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if !ok || len(loaded.Parameters) == 0 {
		t.Fatalf("expected persisted setup, got ok=%t value=%+v", ok, loaded)
	}
}
