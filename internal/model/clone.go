package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Clone returns a deep copy of the snapshot. Decimals are immutable values,
// so only maps, slices and pointers need copying.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Meta:     s.Meta,
		Auth:     s.Auth,
		Settings: s.Settings,
		Current:  s.Current.clone(),
		Rates:    cloneAmounts(s.Rates),
	}

	out.Teams = make([]*Team, 0, len(s.Teams))
	for _, t := range s.Teams {
		out.Teams = append(out.Teams, t.Clone())
	}

	out.MarketConditions = make([]*MarketCondition, 0, len(s.MarketConditions))
	for _, m := range s.MarketConditions {
		mc := *m
		mc.Events = append([]Event(nil), m.Events...)
		out.MarketConditions = append(out.MarketConditions, &mc)
	}

	out.Notifications = make([]*Notification, 0, len(s.Notifications))
	for _, n := range s.Notifications {
		nc := *n
		nc.AcceptedAt = cloneTime(n.AcceptedAt)
		out.Notifications = append(out.Notifications, &nc)
	}

	out.Ledger = make([]LedgerEntry, len(s.Ledger))
	for i, e := range s.Ledger {
		e.Meta = cloneMeta(e.Meta)
		out.Ledger[i] = e
	}

	if s.Results != nil {
		out.Results = &Results{
			ComputedAt: s.Results.ComputedAt,
			Rows:       append([]ResultRow(nil), s.Results.Rows...),
		}
	}
	return out
}

// Clone returns a copy of the team with its own holdings map.
func (t *Team) Clone() *Team {
	tc := *t
	tc.Holdings = cloneAmounts(t.Holdings)
	return &tc
}

func (g GameState) clone() GameState {
	g.RoundEventIDs = append([]string(nil), g.RoundEventIDs...)
	g.SpunEventIDs = append([]string(nil), g.SpunEventIDs...)
	g.PhaseEndsAt = cloneTime(g.PhaseEndsAt)
	g.LastUpdatedAt = cloneTime(g.LastUpdatedAt)
	return g
}

func cloneAmounts(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
