// Package wheel implements the market wheel: a uniform pick of the round's
// market condition and spin-without-replacement over its events.
package wheel

import (
	"errors"
	"math/rand/v2"
	"slices"

	"github.com/moneyrush/round-engine/internal/model"
)

var (
	// ErrNoConditions is returned when a scan runs with no market conditions.
	ErrNoConditions = errors.New("wheel: no market conditions defined")

	// ErrExhausted is returned when every event of the condition was spun.
	ErrExhausted = errors.New("wheel: no events left on wheel")
)

// Source yields uniform integers in [0, n). It is the only source of
// nondeterminism in the engine.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// DefaultSource draws from the runtime-seeded global generator.
func DefaultSource() Source { return globalSource{} }

// NewSeeded returns a reproducible source, useful for rehearsals.
func NewSeeded(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// PickCondition selects one market condition uniformly at random.
func PickCondition(src Source, conds []*model.MarketCondition) (*model.MarketCondition, error) {
	if len(conds) == 0 {
		return nil, ErrNoConditions
	}
	return conds[src.IntN(len(conds))], nil
}

// Remaining returns the events that have not been spun yet, in condition order.
func Remaining(events []model.Event, spun []string) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if !slices.Contains(spun, ev.ID) {
			out = append(out, ev)
		}
	}
	return out
}

// Spin draws one event uniformly from those not yet spun.
func Spin(src Source, events []model.Event, spun []string) (model.Event, error) {
	remaining := Remaining(events, spun)
	if len(remaining) == 0 {
		return model.Event{}, ErrExhausted
	}
	return remaining[src.IntN(len(remaining))], nil
}
