// Package game is the single owner of the round state: the phase state
// machine, the team ledger, event acceptance and agent transactions.
//
// Every mutating operation is serialized by one mutex, applied to a working
// copy of the snapshot, persisted in full, and only then swapped in. A failed
// save leaves the in-memory state exactly as it was before the call.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moneyrush/round-engine/internal/catalog"
	"github.com/moneyrush/round-engine/internal/metrics"
	"github.com/moneyrush/round-engine/internal/model"
	"github.com/moneyrush/round-engine/internal/returns"
	"github.com/moneyrush/round-engine/internal/store"
	"github.com/moneyrush/round-engine/internal/tax"
	"github.com/moneyrush/round-engine/internal/wheel"
)

// Archiver receives the final snapshot after endGame has been persisted.
type Archiver interface {
	Archive(ctx context.Context, snap *model.Snapshot) error
}

// Bootstrap seeds a fresh game and overrides persisted secrets on load.
type Bootstrap struct {
	Meta     model.Meta
	AdminPIN string
	Settings model.Settings
}

// DefaultBootstrap returns the stock event settings.
func DefaultBootstrap() Bootstrap {
	return Bootstrap{
		Meta: model.Meta{
			EventName: "Money Rush Live",
			GameName:  "Money Rush (Budget Race)",
			Copyright: "Money Rush",
		},
		AdminPIN: "0000",
		Settings: DefaultSettings(),
	}
}

// DefaultSettings returns the stock game parameters.
func DefaultSettings() model.Settings {
	return model.Settings{
		StartingMoney:     decimal.NewFromInt(10000),
		RoundsTotal:       4,
		MarketOpenSeconds: 120,
		TradingSeconds:    120,
		EventsPerRound:    4,
		WheelEventsCount:  12,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithSource injects the random source used by the market wheel.
func WithSource(src wheel.Source) Option {
	return func(e *Engine) { e.src = src }
}

// WithClock injects the clock used for timestamps and deadlines.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithArchiver exports final results after endGame.
func WithArchiver(a Archiver) Option {
	return func(e *Engine) { e.archiver = a }
}

// Engine is the single state owner. All methods are safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	state    *model.Snapshot
	cat      *catalog.Catalog
	store    store.Store
	src      wheel.Source
	now      func() time.Time
	log      *slog.Logger
	archiver Archiver
}

// New loads the persisted game from st, or seeds and saves a fresh one from
// boot when the store is empty. A non-empty boot.AdminPIN always replaces the
// persisted admin PIN.
func New(ctx context.Context, cat *catalog.Catalog, st store.Store, boot Bootstrap, opts ...Option) (*Engine, error) {
	e := &Engine{
		cat:   cat,
		store: st,
		src:   wheel.DefaultSource(),
		now:   time.Now,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	snap, err := st.Load(ctx)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		if err := validateSettings(boot.Settings); err != nil {
			return nil, err
		}
		snap = e.fresh(boot)
		if err := st.Save(ctx, snap); err != nil {
			return nil, fmt.Errorf("save initial snapshot: %w", err)
		}
		e.log.Info("new game created", "game", boot.Meta.GameName)
	case err != nil:
		return nil, fmt.Errorf("load snapshot: %w", err)
	default:
		e.normalize(snap)
		e.log.Info("game restored",
			"phase", snap.Current.Phase,
			"round", snap.Current.RoundIndex,
			"teams", len(snap.Teams),
		)
	}
	if boot.AdminPIN != "" {
		snap.Auth.AdminPIN = boot.AdminPIN
	}

	e.state = snap
	e.observe(snap)
	return e, nil
}

func (e *Engine) fresh(boot Bootstrap) *model.Snapshot {
	snap := &model.Snapshot{
		Meta:     boot.Meta,
		Auth:     model.Auth{AdminPIN: boot.AdminPIN},
		Settings: boot.Settings,
		Current:  model.GameState{Phase: model.PhaseIdle},
	}
	e.resetRates(snap)
	return snap
}

// normalize restores the invariants a hand-edited or older snapshot may
// violate: every avenue has a rate and every team a zero-filled holding.
func (e *Engine) normalize(snap *model.Snapshot) {
	if snap.Rates == nil {
		snap.Rates = make(map[string]decimal.Decimal)
	}
	defaults := e.cat.DefaultRates()
	for _, a := range e.cat.Avenues() {
		if _, ok := snap.Rates[a.ID]; !ok {
			snap.Rates[a.ID] = defaults[a.ID]
		}
		for _, t := range snap.Teams {
			if t.Holdings == nil {
				t.Holdings = make(map[string]decimal.Decimal)
			}
			if _, ok := t.Holdings[a.ID]; !ok {
				t.Holdings[a.ID] = decimal.Zero
			}
		}
	}
	returns.RefreshDerived(e.cat.Avenues(), snap.Rates)
}

func (e *Engine) resetRates(snap *model.Snapshot) {
	snap.Rates = e.cat.DefaultRates()
	returns.RefreshDerived(e.cat.Avenues(), snap.Rates)
}

// mutate runs fn against a copy of the state, persists the copy and swaps it
// in. Nothing is swapped when fn or the save fails.
func (e *Engine) mutate(ctx context.Context, op string, fn func(s *model.Snapshot, now time.Time) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().UTC()
	next := e.state.Clone()
	if err := fn(next, now); err != nil {
		if !errors.Is(err, errNotDue) {
			metrics.RejectedOperations.WithLabelValues(Kind(err)).Inc()
			e.log.Debug("operation rejected", "op", op, "error", err)
		}
		return err
	}
	next.Current.LastUpdatedAt = &now

	start := time.Now()
	if err := e.store.Save(ctx, next); err != nil {
		metrics.PersistFailures.Inc()
		e.log.Error("persist failed, state unchanged", "op", op, "error", err)
		return fmt.Errorf("persist %s: %w", op, err)
	}
	metrics.PersistLatency.Observe(time.Since(start).Seconds())

	if next.Current.Phase != e.state.Current.Phase {
		metrics.PhaseTransitions.WithLabelValues(string(next.Current.Phase)).Inc()
	}
	e.state = next
	e.observe(next)
	return nil
}

func (e *Engine) observe(s *model.Snapshot) {
	metrics.RegisteredTeams.Set(float64(len(s.Teams)))
	metrics.RoundIndex.Set(float64(s.Current.RoundIndex))
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() *model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Catalog returns the static avenue catalog.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// VerifyAdminPIN reports whether pin matches the admin secret.
func (e *Engine) VerifyAdminPIN(pin string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return catalog.SecretEqual(pin, e.state.Auth.AdminPIN)
}

// Standings returns the settled results rows, or a fresh computation over
// the current balances when endGame has not run (or results were
// invalidated). It never mutates state.
func (e *Engine) Standings() ([]model.ResultRow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Results != nil {
		return append([]model.ResultRow(nil), e.state.Results.Rows...), nil
	}
	res, err := tax.Settle(e.policy(e.state), e.state.Teams, e.now().UTC())
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

func (e *Engine) policy(s *model.Snapshot) tax.Policy {
	return tax.Policy{
		StartingMoney: s.Settings.StartingMoney,
		GovAvenueID:   e.cat.GovAvenueID(),
		NPSAvenueID:   e.cat.NPSAvenueID(),
	}
}

// appendLedger stamps and appends an entry.
func appendLedger(s *model.Snapshot, now time.Time, entry model.LedgerEntry) {
	entry.ID = newID("ldg")
	entry.Timestamp = now
	entry.Round = s.Current.RoundIndex
	s.Ledger = append(s.Ledger, entry)
}

func newID(prefix string) string {
	return prefix + "_" + uuid.New().String()
}

func deadline(now time.Time, seconds int) *time.Time {
	t := now.Add(time.Duration(seconds) * time.Second)
	return &t
}
