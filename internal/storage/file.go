package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"proteus/internal/model"
)

// FileStore keeps the setup and scan records in one JSON document on disk,
// the whole state in a single portable file.
type FileStore struct {
	path string

	mu sync.Mutex
}

type fileDocument struct {
	Setup *model.Setup       `json:"setup,omitempty"`
	Scans []model.ScanRecord `json:"scans,omitempty"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("file store path is required")
	}
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileStore) SaveSetup(_ context.Context, setup model.Setup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	copied := cloneSetup(setup)
	doc.Setup = &copied
	return s.write(doc)
}

func (s *FileStore) LoadSetup(_ context.Context) (model.Setup, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return model.Setup{}, false, err
	}
	if doc.Setup == nil {
		return model.Setup{}, false, nil
	}
	if err := checkVersion(doc.Setup.VersionedRecord); err != nil {
		return model.Setup{}, false, fmt.Errorf("decode setup from %s: %w", s.path, err)
	}
	if doc.Setup.Morphing != nil {
		if err := checkVersion(doc.Setup.Morphing.VersionedRecord); err != nil {
			return model.Setup{}, false, fmt.Errorf("decode morphing from %s: %w", s.path, err)
		}
	}
	return cloneSetup(*doc.Setup), true, nil
}

func (s *FileStore) SaveScan(_ context.Context, scan model.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	replaced := false
	for i := range doc.Scans {
		if doc.Scans[i].ID == scan.ID {
			doc.Scans[i] = scan
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Scans = append(doc.Scans, scan)
	}
	return s.write(doc)
}

func (s *FileStore) GetScan(_ context.Context, id string) (model.ScanRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return model.ScanRecord{}, false, err
	}
	for _, scan := range doc.Scans {
		if scan.ID == id {
			if err := checkVersion(scan.VersionedRecord); err != nil {
				return model.ScanRecord{}, false, fmt.Errorf("decode scan %s from %s: %w", id, s.path, err)
			}
			return scan, true, nil
		}
	}
	return model.ScanRecord{}, false, nil
}

func (s *FileStore) ListScans(_ context.Context) ([]model.ScanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	scans := append([]model.ScanRecord(nil), doc.Scans...)
	sort.Slice(scans, func(i, j int) bool {
		if scans[i].CreatedAtUTC == scans[j].CreatedAtUTC {
			return scans[i].ID < scans[j].ID
		}
		return scans[i].CreatedAtUTC > scans[j].CreatedAtUTC
	})
	return scans, nil
}

func (s *FileStore) read() (fileDocument, error) {
	if s.path == "" {
		return fileDocument{}, errors.New("store is not initialized")
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileDocument{}, nil
		}
		return fileDocument{}, err
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fileDocument{}, fmt.Errorf("decode store file %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *FileStore) write(doc fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(s.path, data, 0o644)
}
