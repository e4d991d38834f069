package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/moneyrush/round-engine/internal/model"
)

func sampleSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Meta:     model.Meta{GameName: "Money Rush"},
		Auth:     model.Auth{AdminPIN: "0000"},
		Settings: model.Settings{StartingMoney: decimal.NewFromInt(10000), RoundsTotal: 4},
		Teams: []*model.Team{{
			ID:       "team_1",
			Name:     "Bulls",
			Status:   model.TeamApproved,
			Cash:     decimal.RequireFromString("9000.10"),
			Holdings: map[string]decimal.Decimal{"gold": decimal.RequireFromString("999.90")},
		}},
		Current: model.GameState{Phase: model.PhaseTrading, RoundIndex: 2},
		Rates:   map[string]decimal.Decimal{"gold": decimal.RequireFromString("-1.25")},
	}
}

// exercise runs the shared Store contract against an implementation.
func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot on empty store, got %v", err)
	}

	snap := sampleSnapshot()
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	snap.Teams[0].Cash = decimal.Zero

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Teams[0].Cash.Equal(decimal.RequireFromString("9000.10")) {
		t.Errorf("cash = %s, want 9000.10", got.Teams[0].Cash)
	}
	if !got.Rates["gold"].Equal(decimal.RequireFromString("-1.25")) {
		t.Errorf("rate = %s, want -1.25", got.Rates["gold"])
	}
	if got.Current.Phase != model.PhaseTrading || got.Current.RoundIndex != 2 {
		t.Errorf("unexpected current state %+v", got.Current)
	}

	// Second save overwrites.
	got.Current.Phase = model.PhaseEnded
	if err := s.Save(ctx, got); err != nil {
		t.Fatalf("second save: %v", err)
	}
	again, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again.Current.Phase != model.PhaseEnded {
		t.Errorf("phase = %s, want ended", again.Current.Phase)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exercise(t, s)
	if s.Saves() != 2 {
		t.Errorf("saves = %d, want 2", s.Saves())
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	exercise(t, NewFileStore(path))

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only state.json after saves, found %v", names)
	}
}

func TestFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileStore(path).Load(context.Background())
	if err == nil || errors.Is(err, ErrNoSnapshot) {
		t.Errorf("expected decode error, got %v", err)
	}
}
