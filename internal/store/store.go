// Package store defines snapshot persistence for the round engine.
// The whole game is one document, written in full after every mutation.
// Implementations include PostgreSQL (JSONB row), a local file
// (write-temp-then-rename), Redis (read-through cache), and in-memory
// (for testing).
package store

import (
	"context"
	"errors"

	"github.com/moneyrush/round-engine/internal/model"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("store: no snapshot saved")

// Store persists the game snapshot. Save replaces the previous document
// entirely; Load returns ErrNoSnapshot when the store is empty.
type Store interface {
	// Load reads the last saved snapshot.
	Load(ctx context.Context) (*model.Snapshot, error)

	// Save overwrites the stored snapshot.
	Save(ctx context.Context, snap *model.Snapshot) error
}
