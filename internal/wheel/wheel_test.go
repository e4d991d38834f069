package wheel

import (
	"errors"
	"testing"

	"github.com/moneyrush/round-engine/internal/model"
)

// seq returns the queued values in order, then zeros.
type seq struct {
	vals []int
}

func (s *seq) IntN(n int) int {
	if len(s.vals) == 0 {
		return 0
	}
	v := s.vals[0]
	s.vals = s.vals[1:]
	return v % n
}

func events(ids ...string) []model.Event {
	out := make([]model.Event, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Event{ID: id})
	}
	return out
}

func TestSpin_WithoutReplacement(t *testing.T) {
	evs := events("a", "b", "c", "d")
	src := NewSeeded(7)
	var spun []string
	seen := map[string]bool{}

	for i := 0; i < len(evs); i++ {
		ev, err := Spin(src, evs, spun)
		if err != nil {
			t.Fatalf("spin %d: %v", i, err)
		}
		if seen[ev.ID] {
			t.Fatalf("event %s drawn twice", ev.ID)
		}
		seen[ev.ID] = true
		spun = append(spun, ev.ID)
	}

	if _, err := Spin(src, evs, spun); !errors.Is(err, ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func TestSpin_UsesRemainingOrder(t *testing.T) {
	evs := events("a", "b", "c")
	// With "a" spun, index 1 of the remaining set is "c".
	ev, err := Spin(&seq{vals: []int{1}}, evs, []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if ev.ID != "c" {
		t.Errorf("expected c, got %s", ev.ID)
	}
}

func TestSpin_EmptyCondition(t *testing.T) {
	if _, err := Spin(DefaultSource(), nil, nil); !errors.Is(err, ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func TestPickCondition(t *testing.T) {
	if _, err := PickCondition(DefaultSource(), nil); !errors.Is(err, ErrNoConditions) {
		t.Errorf("expected ErrNoConditions, got %v", err)
	}

	conds := []*model.MarketCondition{{ID: "x"}, {ID: "y"}, {ID: "z"}}
	mc, err := PickCondition(&seq{vals: []int{2}}, conds)
	if err != nil {
		t.Fatal(err)
	}
	if mc.ID != "z" {
		t.Errorf("expected z, got %s", mc.ID)
	}
}

func TestPickCondition_RoughlyUniform(t *testing.T) {
	conds := []*model.MarketCondition{{ID: "x"}, {ID: "y"}, {ID: "z"}}
	src := NewSeeded(42)
	counts := map[string]int{}
	const n = 3000
	for i := 0; i < n; i++ {
		mc, _ := PickCondition(src, conds)
		counts[mc.ID]++
	}
	for id, c := range counts {
		if c < 800 || c > 1200 {
			t.Errorf("condition %s picked %d/%d times", id, c, n)
		}
	}
	if len(counts) != 3 {
		t.Errorf("expected all 3 conditions picked, got %v", counts)
	}
}
