//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"proteus/internal/model"

	_ "modernc.org/sqlite"
)

// setupKey is the fixed row id of the single setup a store holds.
const setupKey = "current"

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveSetup(ctx context.Context, setup model.Setup) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeSetup(setup)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO setups (id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, setupKey, setup.SchemaVersion, setup.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) LoadSetup(ctx context.Context) (model.Setup, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Setup{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM setups WHERE id = ?`, setupKey).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Setup{}, false, nil
		}
		return model.Setup{}, false, err
	}

	setup, err := DecodeSetup(payload)
	if err != nil {
		return model.Setup{}, false, fmt.Errorf("decode setup: %w", err)
	}
	return setup, true, nil
}

func (s *SQLiteStore) SaveScan(ctx context.Context, scan model.ScanRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeScan(scan)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO scans (id, created_at_utc, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at_utc = excluded.created_at_utc,
			payload = excluded.payload
	`, scan.ID, scan.CreatedAtUTC, payload)
	return err
}

func (s *SQLiteStore) GetScan(ctx context.Context, id string) (model.ScanRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.ScanRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM scans WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ScanRecord{}, false, nil
		}
		return model.ScanRecord{}, false, err
	}

	scan, err := DecodeScan(payload)
	if err != nil {
		return model.ScanRecord{}, false, fmt.Errorf("decode scan %s: %w", id, err)
	}
	return scan, true, nil
}

func (s *SQLiteStore) ListScans(ctx context.Context) ([]model.ScanRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM scans ORDER BY created_at_utc DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scans []model.ScanRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		scan, err := DecodeScan(payload)
		if err != nil {
			return nil, fmt.Errorf("decode scan: %w", err)
		}
		scans = append(scans, scan)
	}
	return scans, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS setups (
			id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS scans (
			id TEXT PRIMARY KEY,
			created_at_utc TEXT NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
