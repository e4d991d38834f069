package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"github.com/moneyrush/round-engine/internal/catalog"
	"github.com/moneyrush/round-engine/internal/model"
	"github.com/moneyrush/round-engine/internal/tax"
)

func TestPrintReport_Provisional(t *testing.T) {
	color.NoColor = true
	cat := catalog.Default()
	holdings := cat.ZeroHoldings()
	holdings["gold"] = decimal.NewFromInt(6000)
	snap := &model.Snapshot{
		Meta:     model.Meta{EventName: "Money Rush Live", GameName: "Budget Race"},
		Settings: model.Settings{StartingMoney: decimal.NewFromInt(10000), RoundsTotal: 4},
		Current:  model.GameState{Phase: model.PhaseTrading, RoundIndex: 2},
		Teams: []*model.Team{{
			ID: "team_1", Name: "Bulls", Status: model.TeamApproved,
			Cash: decimal.NewFromInt(5000), Holdings: holdings,
		}},
	}

	var out bytes.Buffer
	if err := printReport(&out, snap, cat); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	for _, want := range []string{"Provisional", "round 2 of 4", "Bulls", "11000.00", "1000.00"} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
}

func TestPrintReport_FinalLoss(t *testing.T) {
	color.NoColor = true
	cat := catalog.Default()
	holdings := cat.ZeroHoldings()
	holdings["crypto"] = decimal.NewFromInt(4000)
	snap := &model.Snapshot{
		Settings: model.Settings{StartingMoney: decimal.NewFromInt(10000), RoundsTotal: 4},
		Teams: []*model.Team{{
			ID: "team_1", Name: "Bears", Status: model.TeamApproved,
			Cash: decimal.NewFromInt(5000), Holdings: holdings,
		}},
	}
	results, err := tax.Settle(tax.Policy{
		StartingMoney: snap.Settings.StartingMoney,
		GovAvenueID:   cat.GovAvenueID(),
		NPSAvenueID:   cat.NPSAvenueID(),
	}, snap.Teams, time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	snap.Results = results

	var out bytes.Buffer
	if err := printReport(&out, snap, cat); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	for _, want := range []string{"Final results computed 2026-03-14T18:00:00Z", "9000.00", "-1000.00"} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
}

func TestPrintCatalog(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	printCatalog(&out, catalog.Default())
	got := out.String()
	for _, want := range []string{"gov_bonds", "basket stock_it", "AG_MF2", "tax: exempt gov_bonds, capped nps"} {
		if !strings.Contains(got, want) {
			t.Errorf("catalog output missing %q:\n%s", want, got)
		}
	}
}
