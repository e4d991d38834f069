package game

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneyrush/round-engine/internal/model"
)

// RegisterRequest is a public team registration.
type RegisterRequest struct {
	TeamName string
	Member1  model.Member
	Member2  model.Member
}

// Register creates an approved team with starting cash and zero holdings.
// Team names are unique case-insensitively.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*model.Team, error) {
	name := strings.TrimSpace(req.TeamName)
	members := [2]model.Member{trimMember(req.Member1), trimMember(req.Member2)}

	var team *model.Team
	err := e.mutate(ctx, "register", func(s *model.Snapshot, _ time.Time) error {
		if name == "" {
			return validation("Team name required")
		}
		for _, t := range s.Teams {
			if strings.EqualFold(t.Name, name) {
				return validation("Team name must be unique")
			}
		}
		if members[0].Name == "" || members[1].Name == "" {
			return validation("Both member names required")
		}

		team = &model.Team{
			ID:       newID("team"),
			Name:     name,
			Members:  members,
			Status:   model.TeamApproved,
			Cash:     s.Settings.StartingMoney,
			Holdings: e.cat.ZeroHoldings(),
		}
		s.Teams = append(s.Teams, team)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("team registered", "team", team.ID, "name", team.Name)
	return team.Clone(), nil
}

func trimMember(m model.Member) model.Member {
	return model.Member{
		Name:      strings.TrimSpace(m.Name),
		Institute: strings.TrimSpace(m.Institute),
	}
}

// Approve confirms a team. Teams are approved on registration, so this only
// checks the team exists.
func (e *Engine) Approve(ctx context.Context, teamID string) error {
	return e.mutate(ctx, "approve", func(s *model.Snapshot, _ time.Time) error {
		t := s.Team(teamID)
		if t == nil {
			return notFound("Team not found")
		}
		if t.Status != model.TeamApproved {
			t.Status = model.TeamApproved
			t.Cash = s.Settings.StartingMoney
		}
		return nil
	})
}

// Reject removes a team. Its ledger entries and any computed results are
// left in place.
func (e *Engine) Reject(ctx context.Context, teamID string) error {
	err := e.mutate(ctx, "reject", func(s *model.Snapshot, _ time.Time) error {
		if !removeTeam(s, teamID) {
			return notFound("Team not found")
		}
		return nil
	})
	if err == nil {
		e.log.Info("team rejected", "team", teamID)
	}
	return err
}

// DeleteTeam removes a team and every ledger entry tied to it, and
// invalidates computed results.
func (e *Engine) DeleteTeam(ctx context.Context, teamID string) error {
	err := e.mutate(ctx, "delete_team", func(s *model.Snapshot, _ time.Time) error {
		if !removeTeam(s, teamID) {
			return notFound("Team not found")
		}
		kept := s.Ledger[:0]
		for _, l := range s.Ledger {
			if l.TeamID != teamID {
				kept = append(kept, l)
			}
		}
		s.Ledger = kept
		s.Results = nil
		return nil
	})
	if err == nil {
		e.log.Info("team deleted", "team", teamID)
	}
	return err
}

func removeTeam(s *model.Snapshot, teamID string) bool {
	for i, t := range s.Teams {
		if t.ID == teamID {
			s.Teams = append(s.Teams[:i], s.Teams[i+1:]...)
			return true
		}
	}
	return false
}

// SettingsUpdate is a partial settings change; nil fields are left as is.
type SettingsUpdate struct {
	StartingMoney     *decimal.Decimal
	RoundsTotal       *int
	MarketOpenSeconds *int
	TradingSeconds    *int
}

// UpdateSettings applies the provided fields. Every provided value must be
// positive.
func (e *Engine) UpdateSettings(ctx context.Context, u SettingsUpdate) error {
	return e.mutate(ctx, "settings", func(s *model.Snapshot, _ time.Time) error {
		if u.StartingMoney != nil {
			if !u.StartingMoney.IsPositive() {
				return validation("Invalid startingMoney")
			}
			s.Settings.StartingMoney = u.StartingMoney.Round(2)
		}
		for _, f := range []struct {
			name string
			val  *int
			dst  *int
			max  int
		}{
			{"roundsTotal", u.RoundsTotal, &s.Settings.RoundsTotal, MaxRounds},
			{"marketOpenSeconds", u.MarketOpenSeconds, &s.Settings.MarketOpenSeconds, MaxPhaseSeconds},
			{"tradingSeconds", u.TradingSeconds, &s.Settings.TradingSeconds, MaxPhaseSeconds},
		} {
			if f.val == nil {
				continue
			}
			if *f.val <= 0 || *f.val > f.max {
				return validation("Invalid %s", f.name)
			}
			*f.dst = *f.val
		}
		return nil
	})
}

// Upper bounds for integer settings. Phase timers are capped at one day.
const (
	MaxRounds       = 1000
	MaxPhaseSeconds = 24 * 60 * 60
)

func validateSettings(st model.Settings) error {
	switch {
	case !st.StartingMoney.IsPositive():
		return validation("Invalid startingMoney")
	case st.RoundsTotal <= 0 || st.RoundsTotal > MaxRounds:
		return validation("Invalid roundsTotal")
	case st.MarketOpenSeconds <= 0 || st.MarketOpenSeconds > MaxPhaseSeconds:
		return validation("Invalid marketOpenSeconds")
	case st.TradingSeconds <= 0 || st.TradingSeconds > MaxPhaseSeconds:
		return validation("Invalid tradingSeconds")
	case st.WheelEventsCount <= 0:
		return validation("Invalid wheelEventsCount")
	}
	return nil
}

// AddMarketCondition creates an empty market condition.
func (e *Engine) AddMarketCondition(ctx context.Context, title string) (*model.MarketCondition, error) {
	title = strings.TrimSpace(title)
	mc := &model.MarketCondition{ID: newID("mc"), Title: title}

	err := e.mutate(ctx, "add_market_condition", func(s *model.Snapshot, _ time.Time) error {
		if title == "" {
			return validation("Title required")
		}
		s.MarketConditions = append(s.MarketConditions, &model.MarketCondition{ID: mc.ID, Title: mc.Title})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mc, nil
}

// EventRequest adds one event to a market condition's wheel.
type EventRequest struct {
	MarketConditionID string
	Text              string
	AvenueID          string
	Direction         model.Direction
	Rate              decimal.Decimal
}

// AddEvent appends an event to a market condition, up to the wheel size.
func (e *Engine) AddEvent(ctx context.Context, req EventRequest) (model.Event, error) {
	ev := model.Event{
		ID:        newID("ev"),
		Text:      strings.TrimSpace(req.Text),
		AvenueID:  strings.TrimSpace(req.AvenueID),
		Direction: req.Direction,
		Rate:      req.Rate,
	}

	err := e.mutate(ctx, "add_event", func(s *model.Snapshot, _ time.Time) error {
		mc := s.MarketCondition(req.MarketConditionID)
		if mc == nil {
			return notFound("Market condition not found")
		}
		if ev.Text == "" {
			return validation("Event text required")
		}
		if !e.cat.Has(ev.AvenueID) {
			return notFound("Avenue not found")
		}
		if !ev.Direction.Valid() {
			return validation("Direction must be increase or decrease")
		}
		if ev.Rate.IsNegative() {
			return validation("Rate must be a non-negative number")
		}
		if len(mc.Events) >= s.Settings.WheelEventsCount {
			return validation("Max %d events reached", s.Settings.WheelEventsCount)
		}
		mc.Events = append(mc.Events, ev)
		return nil
	})
	if err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// Initialize restarts the game with the same teams, market conditions and
// settings: round state, results, notifications and ledger are cleared, rates
// return to their defaults and balances to starting cash.
func (e *Engine) Initialize(ctx context.Context) error {
	err := e.mutate(ctx, "initialize", func(s *model.Snapshot, _ time.Time) error {
		e.restart(s)
		return nil
	})
	if err == nil {
		e.log.Info("game initialized")
	}
	return err
}

// ResetAll is Initialize plus removal of every market condition.
func (e *Engine) ResetAll(ctx context.Context) error {
	err := e.mutate(ctx, "reset_all", func(s *model.Snapshot, _ time.Time) error {
		e.restart(s)
		s.MarketConditions = nil
		return nil
	})
	if err == nil {
		e.log.Info("game reset")
	}
	return err
}

func (e *Engine) restart(s *model.Snapshot) {
	s.Current = model.GameState{Phase: model.PhaseIdle}
	s.Results = nil
	s.Notifications = nil
	s.Ledger = nil
	e.resetRates(s)
	for _, t := range s.Teams {
		t.Cash = s.Settings.StartingMoney
		t.Holdings = e.cat.ZeroHoldings()
	}
}
