package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneyrush/round-engine/internal/model"
)

// DefaultGameKey identifies the snapshot row when a single game is hosted.
const DefaultGameKey = "default"

// PostgresStore implements Store using one JSONB row per game.
// Money inside the document is encoded as decimal strings, so no
// precision is lost on the round trip.
type PostgresStore struct {
	pool *pgxpool.Pool
	key  string
}

// NewPostgresStore creates a new PostgreSQL-backed store for the game
// identified by key. An empty key uses DefaultGameKey.
func NewPostgresStore(pool *pgxpool.Pool, key string) *PostgresStore {
	if key == "" {
		key = DefaultGameKey
	}
	return &PostgresStore{pool: pool, key: key}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS game_snapshots (
		     game_key   TEXT PRIMARY KEY,
		     doc        JSONB NOT NULL,
		     phase      TEXT NOT NULL,
		     round      INTEGER NOT NULL,
		     updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		 )`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (*model.Snapshot, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM game_snapshots WHERE game_key = $1`, s.key).
		Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", s.key, err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", s.key, err)
	}
	return &snap, nil
}

func (s *PostgresStore) Save(ctx context.Context, snap *model.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO game_snapshots (game_key, doc, phase, round, updated_at)
		 VALUES ($1, $2::JSONB, $3, $4, now())
		 ON CONFLICT (game_key) DO UPDATE
		 SET doc = EXCLUDED.doc, phase = EXCLUDED.phase,
		     round = EXCLUDED.round, updated_at = EXCLUDED.updated_at`,
		s.key, string(doc), string(snap.Current.Phase), snap.Current.RoundIndex,
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", s.key, err)
	}
	return tx.Commit(ctx)
}
