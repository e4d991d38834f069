// Package returns implements the rate table arithmetic and the compounding
// pass that applies every avenue's cumulative rate to team holdings.
//
// All values use shopspring/decimal. Holdings and rates are rounded to
// 2 decimal places when stored. The pass is deterministic: the same rate table
// and holdings always produce the same impacts in the same order.
package returns

import (
	"github.com/shopspring/decimal"

	"github.com/moneyrush/round-engine/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Round2 rounds a monetary amount or rate to 2 decimal places.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// Impact is the effect of one compounding step on one team's holding.
type Impact struct {
	TeamID   string
	AvenueID string
	RatePct  decimal.Decimal
	Before   decimal.Decimal
	After    decimal.Decimal
	Change   decimal.Decimal
}

// Accumulate adds delta to the avenue's cumulative rate and returns the new
// rate.
func Accumulate(rates map[string]decimal.Decimal, avenueID string, delta decimal.Decimal) decimal.Decimal {
	next := Round2(rates[avenueID].Add(delta))
	rates[avenueID] = next
	return next
}

// EffectiveRate derives a basket's rate as the weighted sum of its
// underlyings' current rates.
func EffectiveRate(basket model.Avenue, rates map[string]decimal.Decimal) decimal.Decimal {
	eff := decimal.Zero
	for _, w := range basket.Basket {
		eff = eff.Add(rates[w.AvenueID].Mul(w.Weight))
	}
	return eff
}

// RefreshDerived stores each basket's derived rate in the table for display.
// The stored value is never read back by Compound.
func RefreshDerived(avenues []model.Avenue, rates map[string]decimal.Decimal) {
	for _, a := range avenues {
		if a.Kind == model.AvenueBasket {
			rates[a.ID] = Round2(EffectiveRate(a, rates))
		}
	}
}

// Grow applies ratePct to a holding: round2(h + h*rate/100). The returned
// change is round2(h*rate/100). A rate below -100% wipes the holding out:
// the result is floored at zero and the change is -h.
func Grow(holding, ratePct decimal.Decimal) (after, change decimal.Decimal) {
	raw := holding.Mul(ratePct).Div(hundred)
	after = Round2(holding.Add(raw))
	if after.IsNegative() {
		return decimal.Zero, holding.Neg()
	}
	return after, Round2(raw)
}

// Compound runs one pass over all avenues. Single avenues use their own
// cumulative rate; baskets use the rate derived from their underlyings and
// only scale the basket's own balance. Only approved teams with a nonzero
// holding in an avenue with a nonzero rate are touched.
func Compound(avenues []model.Avenue, rates map[string]decimal.Decimal, teams []*model.Team) []Impact {
	var impacts []Impact

	apply := func(avenueID string, rate decimal.Decimal) {
		if rate.IsZero() {
			return
		}
		for _, t := range teams {
			if t.Status != model.TeamApproved {
				continue
			}
			h := t.Holdings[avenueID]
			if h.IsZero() {
				continue
			}
			after, change := Grow(h, rate)
			t.Holdings[avenueID] = after
			impacts = append(impacts, Impact{
				TeamID:   t.ID,
				AvenueID: avenueID,
				RatePct:  rate,
				Before:   h,
				After:    after,
				Change:   change,
			})
		}
	}

	for _, a := range avenues {
		if a.Kind == model.AvenueSingle {
			apply(a.ID, rates[a.ID])
		}
	}
	for _, a := range avenues {
		if a.Kind == model.AvenueBasket {
			apply(a.ID, EffectiveRate(a, rates))
		}
	}
	return impacts
}
