package storage

import (
	"context"

	"proteus/internal/model"
)

// Store defines persistence for the morphing setup and basis scan records.
// A store holds at most one setup; saving replaces it.
type Store interface {
	Init(ctx context.Context) error
	SaveSetup(ctx context.Context, setup model.Setup) error
	LoadSetup(ctx context.Context) (model.Setup, bool, error)
	SaveScan(ctx context.Context, scan model.ScanRecord) error
	GetScan(ctx context.Context, id string) (model.ScanRecord, bool, error)
	ListScans(ctx context.Context) ([]model.ScanRecord, error)
}
