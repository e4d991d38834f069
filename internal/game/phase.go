package game

import (
	"context"
	"errors"
	"time"

	"github.com/moneyrush/round-engine/internal/metrics"
	"github.com/moneyrush/round-engine/internal/model"
	"github.com/moneyrush/round-engine/internal/tax"
	"github.com/moneyrush/round-engine/internal/wheel"
)

// MarketScan picks a market condition uniformly at random and opens the
// market for the round. It fails once the game has ended.
func (e *Engine) MarketScan(ctx context.Context) (*model.MarketCondition, error) {
	var picked model.MarketCondition
	err := e.mutate(ctx, "market_scan", func(s *model.Snapshot, now time.Time) error {
		if s.Current.Phase == model.PhaseEnded {
			return validation("Game has ended; initialize to play again")
		}
		mc, err := wheel.PickCondition(e.src, s.MarketConditions)
		if errors.Is(err, wheel.ErrNoConditions) {
			return validation("Add at least one market condition")
		}
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(mc.Events))
		for _, ev := range mc.Events {
			ids = append(ids, ev.ID)
		}
		s.Current.MarketConditionID = mc.ID
		s.Current.Headline = mc.Title
		s.Current.RoundEventIDs = ids
		s.Current.SpunEventIDs = nil
		s.Current.Phase = model.PhaseMarketOpen
		s.Current.PhaseEndsAt = deadline(now, s.Settings.MarketOpenSeconds)
		picked = model.MarketCondition{ID: mc.ID, Title: mc.Title}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("market scanned", "condition", picked.ID, "headline", picked.Title)
	return &picked, nil
}

// BeginSpin enters the spinning phase. A market scan must have run.
func (e *Engine) BeginSpin(ctx context.Context) error {
	return e.mutate(ctx, "begin_spin", func(s *model.Snapshot, _ time.Time) error {
		return applyBeginSpin(s)
	})
}

func applyBeginSpin(s *model.Snapshot) error {
	if s.Current.MarketConditionID == "" {
		return validation("Run Market Scan first")
	}
	s.Current.Phase = model.PhaseSpinning
	s.Current.PhaseEndsAt = nil
	return nil
}

// SpinResult is the event drawn by a spin and the notification sent for it.
type SpinResult struct {
	Event          model.Event
	NotificationID string
}

// Spin draws one unspun event from the current market condition and notifies
// the event's avenue agent. Rates and holdings change only on acceptance.
func (e *Engine) Spin(ctx context.Context) (SpinResult, error) {
	var res SpinResult
	err := e.mutate(ctx, "spin", func(s *model.Snapshot, now time.Time) error {
		if s.Current.Phase != model.PhaseSpinning {
			return validation("Not in spinning phase")
		}
		mc := s.MarketCondition(s.Current.MarketConditionID)
		if mc == nil {
			return validation("Market condition missing")
		}
		ev, err := wheel.Spin(e.src, mc.Events, s.Current.SpunEventIDs)
		if errors.Is(err, wheel.ErrExhausted) {
			return validation("No events left on wheel")
		}
		if err != nil {
			return err
		}

		s.Current.SpunEventIDs = append(s.Current.SpunEventIDs, ev.ID)
		n := &model.Notification{
			ID:        newID("ntf"),
			ToAvenue:  ev.AvenueID,
			EventID:   ev.ID,
			CreatedAt: now,
		}
		s.Notifications = append(s.Notifications, n)
		appendLedger(s, now, model.LedgerEntry{
			Kind:     model.LedgerEventSpun,
			AvenueID: ev.AvenueID,
			Amount:   ev.Delta(),
			Action:   "spun",
			Actor:    "admin",
			Meta: map[string]string{
				"eventId":   ev.ID,
				"text":      ev.Text,
				"direction": string(ev.Direction),
				"rate":      ev.Rate.String(),
			},
		})

		res = SpinResult{Event: ev, NotificationID: n.ID}
		return nil
	})
	if err != nil {
		return SpinResult{}, err
	}

	metrics.WheelSpins.Inc()
	e.log.Info("wheel spun",
		"event", res.Event.ID,
		"avenue", res.Event.AvenueID,
		"delta", res.Event.Delta().String(),
		"notification", res.NotificationID,
	)
	return res, nil
}

// OpenTrading opens the trading window. It is accepted from any phase.
func (e *Engine) OpenTrading(ctx context.Context) error {
	return e.mutate(ctx, "open_trading", func(s *model.Snapshot, now time.Time) error {
		s.Current.Phase = model.PhaseTrading
		s.Current.PhaseEndsAt = deadline(now, s.Settings.TradingSeconds)
		return nil
	})
}

// CloseTrading locks the round and advances the round counter. After the
// last round the game ends; otherwise the round's market fields are cleared
// for the next scan.
func (e *Engine) CloseTrading(ctx context.Context) error {
	var round int
	var phase model.Phase
	err := e.mutate(ctx, "close_trading", func(s *model.Snapshot, _ time.Time) error {
		applyCloseTrading(s)
		round, phase = s.Current.RoundIndex, s.Current.Phase
		return nil
	})
	if err == nil {
		e.log.Info("trading closed", "rounds_done", round, "phase", phase)
	}
	return err
}

func applyCloseTrading(s *model.Snapshot) {
	s.Current.Phase = model.PhaseLocked
	s.Current.PhaseEndsAt = nil
	s.Current.RoundIndex++
	if s.Current.RoundIndex >= s.Settings.RoundsTotal {
		s.Current.Phase = model.PhaseEnded
		return
	}
	s.Current.MarketConditionID = ""
	s.Current.Headline = ""
	s.Current.RoundEventIDs = nil
	s.Current.SpunEventIDs = nil
}

// EndGame ends the game from any phase and settles every approved team,
// replacing earlier results. The persisted snapshot is then handed to the
// archiver, if one is configured; archive failures are logged only.
func (e *Engine) EndGame(ctx context.Context) (*model.Results, error) {
	var results *model.Results
	var final *model.Snapshot
	err := e.mutate(ctx, "end_game", func(s *model.Snapshot, now time.Time) error {
		res, err := tax.Settle(e.policy(s), s.Teams, now)
		if err != nil {
			return validation("Cannot settle: %v", err)
		}
		s.Results = res
		s.Current.Phase = model.PhaseEnded
		s.Current.PhaseEndsAt = nil
		results = &model.Results{ComputedAt: res.ComputedAt, Rows: append([]model.ResultRow(nil), res.Rows...)}
		final = s.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("game ended", "teams_ranked", len(results.Rows))
	if e.archiver != nil {
		if err := e.archiver.Archive(ctx, final); err != nil {
			e.log.Error("archive results failed", "error", err)
		}
	}
	return results, nil
}

// AdvanceExpired performs the transition an admin would make once the
// current phase deadline has passed: market open moves to spinning and an
// open trading window is closed. It returns the new phase, or "" when no
// deadline has elapsed.
func (e *Engine) AdvanceExpired(ctx context.Context) (model.Phase, error) {
	var phase model.Phase
	err := e.mutate(ctx, "auto_advance", func(s *model.Snapshot, now time.Time) error {
		ends := s.Current.PhaseEndsAt
		if ends == nil || now.Before(*ends) {
			return errNotDue
		}
		switch s.Current.Phase {
		case model.PhaseMarketOpen:
			if err := applyBeginSpin(s); err != nil {
				return err
			}
		case model.PhaseTrading:
			applyCloseTrading(s)
		default:
			return errNotDue
		}
		phase = s.Current.Phase
		return nil
	})
	if errors.Is(err, errNotDue) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return phase, nil
}
