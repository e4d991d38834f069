// Package tax implements end-of-game settlement: profit attribution by
// final allocation, the NPS levy with its ceiling, the non-marginal slab
// table for everything else, and the after-tax ranking.
//
// Profit is attributed to avenues by each team's final holdings, not by
// principal invested per avenue. Government bonds are exempt, NPS pays a flat
// 10% capped at NPSCap, and the remaining share is taxed at the single rate of
// the slab its whole amount falls into.
package tax

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneyrush/round-engine/internal/model"
)

var (
	// ErrInvalidStartingMoney is returned when the policy's starting money
	// is not positive.
	ErrInvalidStartingMoney = errors.New("tax: starting money must be positive")

	// NPSRate is the flat levy on NPS-attributed profit.
	NPSRate = decimal.RequireFromString("0.10")

	// NPSCap is the ceiling on NPS tax per team.
	NPSCap = decimal.NewFromInt(5000)
)

// Slab is one bracket of the non-marginal table. A taxable amount at or
// below UpTo (and above the previous bracket) pays Rate on its entirety.
type Slab struct {
	UpTo decimal.Decimal
	Rate decimal.Decimal
}

// Slabs is the bracket table, ascending. Amounts above the last bracket pay
// TopRate.
var (
	Slabs = []Slab{
		{UpTo: decimal.NewFromInt(2000), Rate: decimal.Zero},
		{UpTo: decimal.NewFromInt(4000), Rate: decimal.RequireFromString("0.05")},
		{UpTo: decimal.NewFromInt(6000), Rate: decimal.RequireFromString("0.10")},
		{UpTo: decimal.NewFromInt(8000), Rate: decimal.RequireFromString("0.15")},
		{UpTo: decimal.NewFromInt(10000), Rate: decimal.RequireFromString("0.20")},
		{UpTo: decimal.NewFromInt(12000), Rate: decimal.RequireFromString("0.25")},
	}
	TopRate = decimal.RequireFromString("0.30")
)

// SlabRate returns the rate of the bracket the amount falls into.
func SlabRate(amount decimal.Decimal) decimal.Decimal {
	for _, s := range Slabs {
		if amount.LessThanOrEqual(s.UpTo) {
			return s.Rate
		}
	}
	return TopRate
}

// SlabTax taxes the whole amount at its bracket's rate, rounded to 2dp.
// 4000 pays 200.00; 4001 pays 400.10.
func SlabTax(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(SlabRate(amount)).Round(2)
}

// NPSTax is 10% of the NPS-attributed profit, capped at NPSCap.
func NPSTax(profit decimal.Decimal) decimal.Decimal {
	return decimal.Min(profit.Mul(NPSRate), NPSCap)
}

// Policy carries the settlement parameters.
type Policy struct {
	StartingMoney decimal.Decimal
	GovAvenueID   string
	NPSAvenueID   string
}

// Validate checks the policy before use.
func (p Policy) Validate() error {
	if !p.StartingMoney.IsPositive() {
		return ErrInvalidStartingMoney
	}
	return nil
}

// Row computes one team's settlement. Rank is left at zero.
func (p Policy) Row(t *model.Team) model.ResultRow {
	finalTotal := t.Cash
	invested := decimal.Zero
	for _, amt := range t.Holdings {
		invested = invested.Add(amt)
	}
	finalTotal = finalTotal.Add(invested)

	profit := decimal.Max(decimal.Zero, finalTotal.Sub(p.StartingMoney))

	govShare, npsShare := decimal.Zero, decimal.Zero
	if invested.IsPositive() {
		govShare = t.Holdings[p.GovAvenueID].Div(invested)
		npsShare = t.Holdings[p.NPSAvenueID].Div(invested)
	}
	otherShare := decimal.Max(decimal.Zero, decimal.NewFromInt(1).Sub(govShare).Sub(npsShare))

	taxGov := decimal.Zero
	taxNPS := NPSTax(profit.Mul(npsShare))
	taxOther := SlabTax(profit.Mul(otherShare))
	taxTotal := taxGov.Add(taxNPS).Add(taxOther).Round(2)

	return model.ResultRow{
		TeamID:     t.ID,
		TeamName:   t.Name,
		FinalTotal: finalTotal.Round(2),
		Profit:     profit.Round(2),
		TaxGov:     taxGov,
		TaxNPS:     taxNPS.Round(2),
		TaxOther:   taxOther,
		TaxTotal:   taxTotal,
		AfterTax:   finalTotal.Sub(taxTotal).Round(2),
	}
}

// Settle computes ranked results for every approved team. Rows are sorted
// descending by after-tax value; ties keep registration order.
func Settle(p Policy, teams []*model.Team, now time.Time) (*model.Results, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rows := make([]model.ResultRow, 0, len(teams))
	for _, t := range teams {
		if t.Status != model.TeamApproved {
			continue
		}
		rows = append(rows, p.Row(t))
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].AfterTax.GreaterThan(rows[j].AfterTax)
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}

	return &model.Results{ComputedAt: now, Rows: rows}, nil
}
