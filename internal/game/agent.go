package game

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneyrush/round-engine/internal/catalog"
	"github.com/moneyrush/round-engine/internal/metrics"
	"github.com/moneyrush/round-engine/internal/model"
	"github.com/moneyrush/round-engine/internal/returns"
)

// Transaction actions.
const (
	ActionInvest   = "invest"
	ActionWithdraw = "withdraw"
	ActionTransfer = "transfer"
)

// AcceptResult describes the effect of an accepted event.
type AcceptResult struct {
	Event   model.Event
	Delta   decimal.Decimal
	NewRate decimal.Decimal
	Impacts int
}

// AcceptEvent commits the event behind a notification: the avenue's
// cumulative rate moves by the event delta and a compounding pass runs over
// every avenue. A notification can be accepted once, and only by the agent
// of its avenue.
func (e *Engine) AcceptEvent(ctx context.Context, agent catalog.Agent, notificationID string) (AcceptResult, error) {
	var res AcceptResult
	err := e.mutate(ctx, "accept_event", func(s *model.Snapshot, now time.Time) error {
		n := s.Notification(notificationID)
		if n == nil {
			return notFound("Notification not found")
		}
		if n.ToAvenue != agent.AvenueID {
			return forbidden("Not your avenue")
		}
		if n.AcceptedAt != nil {
			return validation("Already accepted")
		}
		ev, ok := resolveEvent(s, n.EventID)
		if !ok {
			return validation("Event not found")
		}

		n.AcceptedAt = &now
		delta := ev.Delta()
		newRate := returns.Accumulate(s.Rates, ev.AvenueID, delta)

		avenues := e.cat.Avenues()
		impacts := returns.Compound(avenues, s.Rates, s.Teams)
		for _, im := range impacts {
			action := "increase"
			if im.Change.IsNegative() {
				action = "decrease"
			}
			appendLedger(s, now, model.LedgerEntry{
				Kind:     model.LedgerEventImpact,
				TeamID:   im.TeamID,
				AvenueID: im.AvenueID,
				Amount:   im.Change,
				Action:   action,
				Actor:    "system",
				Meta:     map[string]string{"deltaPct": im.RatePct.String()},
			})
		}
		returns.RefreshDerived(avenues, s.Rates)

		appendLedger(s, now, model.LedgerEntry{
			Kind:     model.LedgerEventAccepted,
			AvenueID: ev.AvenueID,
			Amount:   delta,
			Action:   "accepted",
			Actor:    agent.Username,
			Meta:     map[string]string{"eventId": ev.ID, "text": ev.Text},
		})

		res = AcceptResult{Event: ev, Delta: delta, NewRate: newRate, Impacts: len(impacts)}
		return nil
	})
	if err != nil {
		return AcceptResult{}, err
	}

	metrics.EventAcceptances.WithLabelValues(res.Event.AvenueID).Inc()
	metrics.CompoundingImpacts.Add(float64(res.Impacts))
	e.log.Info("event accepted",
		"agent", agent.Username,
		"event", res.Event.ID,
		"avenue", res.Event.AvenueID,
		"delta", res.Delta.String(),
		"rate", res.NewRate.String(),
		"impacts", res.Impacts,
	)
	return res, nil
}

// resolveEvent finds an event in the current market condition first, then
// in any condition, so notifications from earlier rounds still resolve.
func resolveEvent(s *model.Snapshot, eventID string) (model.Event, bool) {
	if mc := s.MarketCondition(s.Current.MarketConditionID); mc != nil {
		if ev, ok := mc.Event(eventID); ok {
			return ev, true
		}
	}
	for _, mc := range s.MarketConditions {
		if ev, ok := mc.Event(eventID); ok {
			return ev, true
		}
	}
	return model.Event{}, false
}

// TxRequest is an agent trade on behalf of a team. The agent's avenue is the
// source (withdraw, transfer) or target (invest) of the money.
type TxRequest struct {
	TeamID     string
	Action     string
	Amount     decimal.Decimal
	ToAvenueID string
}

// Transact executes an agent trade. Trades are only accepted while the
// trading window is open; amounts are rounded to 2 decimals before use.
func (e *Engine) Transact(ctx context.Context, agent catalog.Agent, req TxRequest) (*model.Team, error) {
	action := strings.TrimSpace(req.Action)
	amount := returns.Round2(req.Amount)
	toAvenue := strings.TrimSpace(req.ToAvenueID)
	from := agent.AvenueID

	var team *model.Team
	err := e.mutate(ctx, "transaction", func(s *model.Snapshot, now time.Time) error {
		if s.Current.Phase != model.PhaseTrading {
			return validation("Trading window is closed")
		}
		t := s.Team(req.TeamID)
		if t == nil || t.Status != model.TeamApproved {
			return notFound("Team not found")
		}
		if !amount.IsPositive() {
			return validation("Amount must be > 0")
		}

		var meta map[string]string
		switch action {
		case ActionInvest:
			if t.Cash.LessThan(amount) {
				return validation("Insufficient cash")
			}
			t.Cash = returns.Round2(t.Cash.Sub(amount))
			t.Holdings[from] = returns.Round2(t.Holdings[from].Add(amount))
		case ActionWithdraw:
			if t.Holdings[from].LessThan(amount) {
				return validation("Insufficient holding to withdraw")
			}
			t.Holdings[from] = returns.Round2(t.Holdings[from].Sub(amount))
			t.Cash = returns.Round2(t.Cash.Add(amount))
		case ActionTransfer:
			if !e.cat.Has(toAvenue) {
				return notFound("Target avenue not found")
			}
			if toAvenue == from {
				return validation("Cannot transfer to same avenue")
			}
			if t.Holdings[from].LessThan(amount) {
				return validation("Insufficient holding to transfer")
			}
			t.Holdings[from] = returns.Round2(t.Holdings[from].Sub(amount))
			t.Holdings[toAvenue] = returns.Round2(t.Holdings[toAvenue].Add(amount))
			meta = map[string]string{"toAvenueId": toAvenue}
		default:
			return validation("Invalid action")
		}

		appendLedger(s, now, model.LedgerEntry{
			Kind:     model.LedgerTransaction,
			TeamID:   t.ID,
			AvenueID: from,
			Amount:   amount,
			Action:   action,
			Actor:    agent.Username,
			Meta:     meta,
		})
		team = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Transactions.WithLabelValues(action).Inc()
	metrics.TransactionVolume.WithLabelValues(from, action).Add(amount.InexactFloat64())
	e.log.Info("transaction executed",
		"agent", agent.Username,
		"team", team.ID,
		"action", action,
		"avenue", from,
		"amount", amount.String(),
		"cash", team.Cash.String(),
	)
	return team.Clone(), nil
}
