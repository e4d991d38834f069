package catalog

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/moneyrush/round-engine/internal/model"
)

// FallbackRate is the starting rate of a file-defined single avenue that
// omits rate.
var FallbackRate = decimal.RequireFromString("2.50")

// File is the YAML layout of a catalog file:
//
//	tax:
//	  gov_avenue: gov_bonds
//	  nps_avenue: nps
//	avenues:
//	  - id: gold
//	    name: Gold
//	    kind: single
//	    rate: 2.8
//	  - id: mf1
//	    name: Mutual Fund 1
//	    kind: basket
//	    basket:
//	      - {id: gold, weight: 1}
//	agents:
//	  - {username: AG_GOLD, pin: "1234", avenue: gold}
type File struct {
	Tax struct {
		GovAvenue string `yaml:"gov_avenue"`
		NPSAvenue string `yaml:"nps_avenue"`
	} `yaml:"tax"`
	Avenues []struct {
		ID     string   `yaml:"id"`
		Name   string   `yaml:"name"`
		Kind   string   `yaml:"kind"`
		Rate   *float64 `yaml:"rate"`
		Basket []struct {
			ID     string `yaml:"id"`
			Weight string `yaml:"weight"`
		} `yaml:"basket"`
	} `yaml:"avenues"`
	Agents []struct {
		Username string `yaml:"username"`
		PIN      string `yaml:"pin"`
		Avenue   string `yaml:"avenue"`
	} `yaml:"agents"`
}

// Load reads and validates a YAML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	spec := Spec{
		DefaultRates: make(map[string]decimal.Decimal),
		GovAvenueID:  f.Tax.GovAvenue,
		NPSAvenueID:  f.Tax.NPSAvenue,
	}
	for _, a := range f.Avenues {
		av := model.Avenue{ID: a.ID, Name: a.Name, Kind: model.AvenueKind(a.Kind)}
		if av.Kind == "" {
			av.Kind = model.AvenueSingle
		}
		for _, w := range a.Basket {
			// Weights are decoded from text so 0.2 stays exactly 0.2.
			weight, err := decimal.NewFromString(w.Weight)
			if err != nil {
				return nil, fmt.Errorf("%w: %s weight %q", ErrWeightSum, a.ID, w.Weight)
			}
			av.Basket = append(av.Basket, model.BasketWeight{AvenueID: w.ID, Weight: weight})
		}
		spec.Avenues = append(spec.Avenues, av)
		rate := FallbackRate
		if a.Rate != nil {
			rate = decimal.NewFromFloat(*a.Rate)
		}
		spec.DefaultRates[a.ID] = rate
	}
	for _, ag := range f.Agents {
		spec.Agents = append(spec.Agents, Agent{Username: ag.Username, PIN: ag.PIN, AvenueID: ag.Avenue})
	}
	return New(spec)
}
