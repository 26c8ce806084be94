package storage

import (
	"context"
	"sort"
	"sync"

	"proteus/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	setup       *model.Setup
	scans       map[string]model.ScanRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.setup = nil
	s.scans = make(map[string]model.ScanRecord)
	return nil
}

func (s *MemoryStore) SaveSetup(_ context.Context, setup model.Setup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := cloneSetup(setup)
	s.setup = &copied
	return nil
}

func (s *MemoryStore) LoadSetup(_ context.Context) (model.Setup, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.setup == nil {
		return model.Setup{}, false, nil
	}
	return cloneSetup(*s.setup), true, nil
}

func (s *MemoryStore) SaveScan(_ context.Context, scan model.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scans[scan.ID] = scan
	return nil
}

func (s *MemoryStore) GetScan(_ context.Context, id string) (model.ScanRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scan, ok := s.scans[id]
	return scan, ok, nil
}

func (s *MemoryStore) ListScans(_ context.Context) ([]model.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scans := make([]model.ScanRecord, 0, len(s.scans))
	for _, scan := range s.scans {
		scans = append(scans, scan)
	}
	sort.Slice(scans, func(i, j int) bool {
		if scans[i].CreatedAtUTC == scans[j].CreatedAtUTC {
			return scans[i].ID < scans[j].ID
		}
		return scans[i].CreatedAtUTC > scans[j].CreatedAtUTC
	})
	return scans, nil
}

func cloneSetup(setup model.Setup) model.Setup {
	out := setup
	out.Parameters = make([]model.Parameter, len(setup.Parameters))
	for i, p := range setup.Parameters {
		p.MaxPower = append([]int(nil), p.MaxPower...)
		out.Parameters[i] = p
	}
	out.Benchmarks = cloneBenchmarks(setup.Benchmarks)
	if setup.Morphing != nil {
		morphing := *setup.Morphing
		morphing.Components = make([]model.Component, len(setup.Morphing.Components))
		for i, c := range setup.Morphing.Components {
			c.Powers = append([]int(nil), c.Powers...)
			morphing.Components[i] = c
		}
		morphing.Basis = cloneBenchmarks(setup.Morphing.Basis)
		morphing.Matrix = make([][]float64, len(setup.Morphing.Matrix))
		for i, row := range setup.Morphing.Matrix {
			morphing.Matrix[i] = append([]float64(nil), row...)
		}
		out.Morphing = &morphing
	}
	return out
}

func cloneBenchmarks(benchmarks []model.Benchmark) []model.Benchmark {
	out := make([]model.Benchmark, len(benchmarks))
	for i, b := range benchmarks {
		values := make(map[string]float64, len(b.Values))
		for name, value := range b.Values {
			values[name] = value
		}
		out[i] = model.Benchmark{Name: b.Name, Values: values}
	}
	return out
}
