package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/moneyrush/round-engine/internal/model"
)

// DefaultAgentPIN is the pin shared by the built-in agent profiles.
const DefaultAgentPIN = "1234"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func equalWeights(ids ...string) []model.BasketWeight {
	w := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(ids))))
	out := make([]model.BasketWeight, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.BasketWeight{AvenueID: id, Weight: w})
	}
	return out
}

// DefaultSpec is the nine single avenues and two mutual funds the game ships
// with. Per-avenue starting rates are applied at every compounding pass.
func DefaultSpec() Spec {
	return Spec{
		Avenues: []model.Avenue{
			{ID: "gov_bonds", Name: "Government Bonds", Kind: model.AvenueSingle},
			{ID: "nps", Name: "NPS", Kind: model.AvenueSingle},
			{ID: "stock_it", Name: "Stock IT", Kind: model.AvenueSingle},
			{ID: "stock_auto", Name: "Stock Automobile", Kind: model.AvenueSingle},
			{ID: "stock_pharma", Name: "Stock Pharma", Kind: model.AvenueSingle},
			{ID: "gold", Name: "Gold", Kind: model.AvenueSingle},
			{ID: "silver", Name: "Silver", Kind: model.AvenueSingle},
			{ID: "crypto", Name: "Crypto", Kind: model.AvenueSingle},
			{ID: "bank_fd", Name: "Bank FD", Kind: model.AvenueSingle},
			{
				ID: "mf1", Name: "Mutual Fund 1 (Balanced Growth)", Kind: model.AvenueBasket,
				Basket: equalWeights("stock_it", "stock_auto", "stock_pharma", "gold", "bank_fd"),
			},
			{
				ID: "mf2", Name: "Mutual Fund 2 (High Risk High Return)", Kind: model.AvenueBasket,
				Basket: equalWeights("crypto", "stock_it", "gold", "silver", "stock_auto"),
			},
		},
		DefaultRates: map[string]decimal.Decimal{
			"gov_bonds":    d("1.75"),
			"nps":          d("2.25"),
			"stock_it":     d("3.50"),
			"stock_auto":   d("3.00"),
			"stock_pharma": d("3.20"),
			"gold":         d("2.80"),
			"silver":       d("2.60"),
			"crypto":       d("3.80"),
			"bank_fd":      d("2.00"),
		},
		Agents: []Agent{
			{Username: "AG_GOV", PIN: DefaultAgentPIN, AvenueID: "gov_bonds"},
			{Username: "AG_NPS", PIN: DefaultAgentPIN, AvenueID: "nps"},
			{Username: "AG_IT", PIN: DefaultAgentPIN, AvenueID: "stock_it"},
			{Username: "AG_AUTO", PIN: DefaultAgentPIN, AvenueID: "stock_auto"},
			{Username: "AG_PHARMA", PIN: DefaultAgentPIN, AvenueID: "stock_pharma"},
			{Username: "AG_GOLD", PIN: DefaultAgentPIN, AvenueID: "gold"},
			{Username: "AG_SILVER", PIN: DefaultAgentPIN, AvenueID: "silver"},
			{Username: "AG_CRYPTO", PIN: DefaultAgentPIN, AvenueID: "crypto"},
			{Username: "AG_BANK", PIN: DefaultAgentPIN, AvenueID: "bank_fd"},
			{Username: "AG_MF1", PIN: DefaultAgentPIN, AvenueID: "mf1"},
			{Username: "AG_MF2", PIN: DefaultAgentPIN, AvenueID: "mf2"},
		},
		GovAvenueID: "gov_bonds",
		NPSAvenueID: "nps",
	}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(DefaultSpec())
	if err != nil {
		panic("catalog: built-in catalog invalid: " + err.Error())
	}
	return c
}
