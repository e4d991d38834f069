// Package catalog holds the static avenue catalog and the avenue-bound agent
// profiles. A catalog is validated once at startup and never mutated.
package catalog

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/moneyrush/round-engine/internal/model"
)

var (
	ErrEmptyCatalog      = errors.New("catalog: no avenues defined")
	ErrDuplicateAvenue   = errors.New("catalog: duplicate avenue id")
	ErrInvalidKind       = errors.New("catalog: avenue kind must be single or basket")
	ErrInvalidBasket     = errors.New("catalog: basket underlyings must be known single avenues")
	ErrWeightSum         = errors.New("catalog: basket weights must sum to 1")
	ErrUnknownAgentRoute = errors.New("catalog: agent bound to unknown avenue")
	ErrUnknownTaxAvenue  = errors.New("catalog: tax avenue is not a known avenue")
)

// weightTolerance absorbs decimal noise from weights such as 1/3.
var weightTolerance = decimal.New(1, -6)

// Agent is an avenue-bound operator profile.
type Agent struct {
	Username string
	PIN      string
	AvenueID string
}

// Catalog is the immutable set of avenues, their starting rates, and agents.
type Catalog struct {
	avenues  []model.Avenue
	index    map[string]int
	defaults map[string]decimal.Decimal
	agents   []Agent

	govAvenue string
	npsAvenue string
}

// Spec is the raw material for a catalog.
type Spec struct {
	Avenues      []model.Avenue
	DefaultRates map[string]decimal.Decimal
	Agents       []Agent
	GovAvenueID  string
	NPSAvenueID  string
}

// New validates spec and builds a catalog.
func New(spec Spec) (*Catalog, error) {
	if len(spec.Avenues) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		index:     make(map[string]int, len(spec.Avenues)),
		defaults:  make(map[string]decimal.Decimal, len(spec.Avenues)),
		govAvenue: spec.GovAvenueID,
		npsAvenue: spec.NPSAvenueID,
	}

	for i, a := range spec.Avenues {
		if a.ID == "" {
			return nil, fmt.Errorf("%w: empty id at position %d", ErrDuplicateAvenue, i)
		}
		if _, dup := c.index[a.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAvenue, a.ID)
		}
		if a.Kind != model.AvenueSingle && a.Kind != model.AvenueBasket {
			return nil, fmt.Errorf("%w: %s has %q", ErrInvalidKind, a.ID, a.Kind)
		}
		a.Basket = append([]model.BasketWeight(nil), a.Basket...)
		c.index[a.ID] = len(c.avenues)
		c.avenues = append(c.avenues, a)
	}

	for _, a := range c.avenues {
		if a.Kind != model.AvenueBasket {
			continue
		}
		if err := c.validateBasket(a); err != nil {
			return nil, err
		}
	}

	for _, a := range c.avenues {
		rate := decimal.Zero
		if a.Kind == model.AvenueSingle {
			if r, ok := spec.DefaultRates[a.ID]; ok {
				rate = r
			}
		}
		c.defaults[a.ID] = rate.Round(2)
	}

	for _, ag := range spec.Agents {
		if _, ok := c.index[ag.AvenueID]; !ok {
			return nil, fmt.Errorf("%w: %s -> %s", ErrUnknownAgentRoute, ag.Username, ag.AvenueID)
		}
		c.agents = append(c.agents, ag)
	}

	for _, id := range []string{spec.GovAvenueID, spec.NPSAvenueID} {
		if id == "" {
			continue
		}
		if _, ok := c.index[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTaxAvenue, id)
		}
	}

	return c, nil
}

func (c *Catalog) validateBasket(a model.Avenue) error {
	if len(a.Basket) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalidBasket, a.ID)
	}
	sum := decimal.Zero
	for _, w := range a.Basket {
		i, ok := c.index[w.AvenueID]
		if !ok || c.avenues[i].Kind != model.AvenueSingle {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidBasket, a.ID, w.AvenueID)
		}
		if w.Weight.IsNegative() {
			return fmt.Errorf("%w: %s has negative weight for %s", ErrWeightSum, a.ID, w.AvenueID)
		}
		sum = sum.Add(w.Weight)
	}
	if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(weightTolerance) {
		return fmt.Errorf("%w: %s sums to %s", ErrWeightSum, a.ID, sum)
	}
	return nil
}

// Avenues returns every avenue in catalog order.
func (c *Catalog) Avenues() []model.Avenue {
	out := make([]model.Avenue, len(c.avenues))
	copy(out, c.avenues)
	return out
}

// Avenue looks up an avenue by id.
func (c *Catalog) Avenue(id string) (model.Avenue, bool) {
	i, ok := c.index[id]
	if !ok {
		return model.Avenue{}, false
	}
	return c.avenues[i], true
}

// Has reports whether id names a known avenue.
func (c *Catalog) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// DefaultRates returns a fresh rate table at the configured starting rates.
func (c *Catalog) DefaultRates() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(c.defaults))
	for k, v := range c.defaults {
		out[k] = v
	}
	return out
}

// ZeroHoldings returns a holding map with a zero entry for every avenue.
func (c *Catalog) ZeroHoldings() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(c.avenues))
	for _, a := range c.avenues {
		out[a.ID] = decimal.Zero
	}
	return out
}

// Agents returns the configured agent profiles.
func (c *Catalog) Agents() []Agent {
	return append([]Agent(nil), c.agents...)
}

// Authenticate matches a username/pin pair against the agent profiles.
func (c *Catalog) Authenticate(username, pin string) (Agent, bool) {
	for _, ag := range c.agents {
		if ag.Username != username {
			continue
		}
		if SecretEqual(pin, ag.PIN) {
			return ag, true
		}
	}
	return Agent{}, false
}

// SecretEqual compares a supplied PIN with the expected one in constant time.
func SecretEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// GovAvenueID is the avenue whose attributed profit is untaxed.
func (c *Catalog) GovAvenueID() string { return c.govAvenue }

// NPSAvenueID is the avenue whose attributed profit is taxed at the NPS rate.
func (c *Catalog) NPSAvenueID() string { return c.npsAvenue }
