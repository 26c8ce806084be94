package storage

import (
	"context"
	"reflect"
	"testing"
)

func TestMemoryStoreSetupRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := sampleSetup()
	if err := store.SaveSetup(ctx, input); err != nil {
		t.Fatalf("save setup: %v", err)
	}

	output, ok, err := store.LoadSetup(ctx)
	if err != nil {
		t.Fatalf("load setup: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted setup")
	}
	if !reflect.DeepEqual(output, input) {
		t.Fatalf("roundtrip mismatch\nactual=%+v\nexpected=%+v", output, input)
	}
}

func TestMemoryStoreLoadSetupEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	_, ok, err := store.LoadSetup(ctx)
	if err != nil {
		t.Fatalf("load setup: %v", err)
	}
	if ok {
		t.Fatal("expected empty store")
	}
}

func TestMemoryStoreSetupIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := store.SaveSetup(ctx, sampleSetup()); err != nil {
		t.Fatalf("save setup: %v", err)
	}
	loaded, _, err := store.LoadSetup(ctx)
	if err != nil {
		t.Fatalf("load setup: %v", err)
	}

	loaded.Benchmarks[0].Values["cwl2"] = 99
	loaded.Morphing.Matrix[0][0] = 99

	reloaded, _, err := store.LoadSetup(ctx)
	if err != nil {
		t.Fatalf("reload setup: %v", err)
	}
	if reloaded.Benchmarks[0].Values["cwl2"] != 0 || reloaded.Morphing.Matrix[0][0] != 1 {
		t.Fatalf("stored setup was mutated through a loaded copy: %+v", reloaded)
	}
}

func TestMemoryStoreScanRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := sampleScan("scan-1", "2026-08-25T10:30:00Z")
	if err := store.SaveScan(ctx, input); err != nil {
		t.Fatalf("save scan: %v", err)
	}

	output, ok, err := store.GetScan(ctx, "scan-1")
	if err != nil {
		t.Fatalf("get scan: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted scan")
	}
	if !reflect.DeepEqual(output, input) {
		t.Fatalf("roundtrip mismatch: got=%+v want=%+v", output, input)
	}

	if _, ok, err := store.GetScan(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing scan, got ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreListScansNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	older := sampleScan("scan-old", "2026-08-24T09:00:00Z")
	newer := sampleScan("scan-new", "2026-08-25T09:00:00Z")
	if err := store.SaveScan(ctx, older); err != nil {
		t.Fatalf("save older: %v", err)
	}
	if err := store.SaveScan(ctx, newer); err != nil {
		t.Fatalf("save newer: %v", err)
	}

	scans, err := store.ListScans(ctx)
	if err != nil {
		t.Fatalf("list scans: %v", err)
	}
	if len(scans) != 2 || scans[0].ID != "scan-new" || scans[1].ID != "scan-old" {
		t.Fatalf("unexpected scan order: %+v", scans)
	}
}
