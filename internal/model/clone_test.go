package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSnapshotClone_IsDeep(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	orig := &Snapshot{
		Teams: []*Team{{
			ID:       "team_1",
			Name:     "Alpha",
			Cash:     decimal.NewFromInt(100),
			Holdings: map[string]decimal.Decimal{"gold": decimal.NewFromInt(5)},
		}},
		MarketConditions: []*MarketCondition{{ID: "mc_1", Events: []Event{{ID: "ev_1"}}}},
		Current:          GameState{SpunEventIDs: []string{"ev_1"}, PhaseEndsAt: &now},
		Rates:            map[string]decimal.Decimal{"gold": decimal.NewFromInt(2)},
		Notifications:    []*Notification{{ID: "ntf_1"}},
		Ledger:           []LedgerEntry{{ID: "ldg_1", Meta: map[string]string{"k": "v"}}},
		Results:          &Results{Rows: []ResultRow{{TeamID: "team_1"}}},
	}

	c := orig.Clone()
	c.Teams[0].Holdings["gold"] = decimal.NewFromInt(99)
	c.Teams[0].Cash = decimal.Zero
	c.MarketConditions[0].Events[0].ID = "changed"
	c.Current.SpunEventIDs[0] = "changed"
	*c.Current.PhaseEndsAt = now.Add(time.Hour)
	c.Rates["gold"] = decimal.NewFromInt(50)
	accepted := now
	c.Notifications[0].AcceptedAt = &accepted
	c.Ledger[0].Meta["k"] = "changed"
	c.Results.Rows[0].TeamID = "changed"

	if !orig.Teams[0].Holdings["gold"].Equal(decimal.NewFromInt(5)) {
		t.Error("holdings map shared with clone")
	}
	if !orig.Teams[0].Cash.Equal(decimal.NewFromInt(100)) {
		t.Error("team pointer shared with clone")
	}
	if orig.MarketConditions[0].Events[0].ID != "ev_1" {
		t.Error("events slice shared with clone")
	}
	if orig.Current.SpunEventIDs[0] != "ev_1" {
		t.Error("spun ids shared with clone")
	}
	if !orig.Current.PhaseEndsAt.Equal(now) {
		t.Error("deadline pointer shared with clone")
	}
	if !orig.Rates["gold"].Equal(decimal.NewFromInt(2)) {
		t.Error("rate table shared with clone")
	}
	if orig.Notifications[0].AcceptedAt != nil {
		t.Error("notification shared with clone")
	}
	if orig.Ledger[0].Meta["k"] != "v" {
		t.Error("ledger metadata shared with clone")
	}
	if orig.Results.Rows[0].TeamID != "team_1" {
		t.Error("results shared with clone")
	}
}

func TestEventDelta(t *testing.T) {
	up := Event{Direction: Increase, Rate: decimal.NewFromInt(10)}
	down := Event{Direction: Decrease, Rate: decimal.NewFromInt(4)}
	if !up.Delta().Equal(decimal.NewFromInt(10)) {
		t.Errorf("increase delta = %s, want 10", up.Delta())
	}
	if !down.Delta().Equal(decimal.NewFromInt(-4)) {
		t.Errorf("decrease delta = %s, want -4", down.Delta())
	}
}

func TestTeamTotal(t *testing.T) {
	team := &Team{
		Cash: decimal.RequireFromString("10.005"),
		Holdings: map[string]decimal.Decimal{
			"a": decimal.RequireFromString("1.10"),
			"b": decimal.RequireFromString("2.20"),
		},
	}
	if got := team.Total(); !got.Equal(decimal.RequireFromString("13.31")) {
		t.Errorf("total = %s, want 13.31", got)
	}
}
