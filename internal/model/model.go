// Package model defines the core domain types shared across the round engine.
// All monetary values and rates use shopspring/decimal; money never uses float64.
package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// AvenueKind distinguishes directly traded avenues from weighted baskets.
type AvenueKind string

const (
	AvenueSingle AvenueKind = "single"
	AvenueBasket AvenueKind = "basket"
)

// BasketWeight is one underlying of a basket avenue.
type BasketWeight struct {
	AvenueID string          `json:"id"`
	Weight   decimal.Decimal `json:"w"`
}

// Avenue is an investment channel teams can hold a balance in.
// Immutable after startup.
type Avenue struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Kind   AvenueKind     `json:"type"`
	Basket []BasketWeight `json:"basket,omitempty"`
}

// Member is one of the two registered participants of a team.
type Member struct {
	Name      string `json:"name"`
	Institute string `json:"institute"`
}

// TeamStatus is the registration status of a team. Rejection removes the
// team entirely, so approved is the only persisted value.
type TeamStatus string

const TeamApproved TeamStatus = "approved"

// Team is a competing team with its cash and per-avenue holdings.
// Holdings always carry an entry for every catalog avenue.
type Team struct {
	ID       string                     `json:"id"`
	Name     string                     `json:"teamName"`
	Members  [2]Member                  `json:"members"`
	Status   TeamStatus                 `json:"status"`
	Cash     decimal.Decimal            `json:"cash"`
	Holdings map[string]decimal.Decimal `json:"holdings"`
}

// Total is cash plus every holding, rounded to 2 decimals.
func (t *Team) Total() decimal.Decimal {
	total := t.Cash
	for _, amt := range t.Holdings {
		total = total.Add(amt)
	}
	return total.Round(2)
}

// Invested is the sum of all holdings (cash excluded).
func (t *Team) Invested() decimal.Decimal {
	total := decimal.Zero
	for _, amt := range t.Holdings {
		total = total.Add(amt)
	}
	return total
}

// Direction is the sign of an event's rate change.
type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Increase || d == Decrease
}

// Event is a rate change proposal targeting one avenue.
type Event struct {
	ID        string          `json:"id"`
	Text      string          `json:"text"`
	AvenueID  string          `json:"avenueId"`
	Direction Direction       `json:"direction"`
	Rate      decimal.Decimal `json:"rate"`
}

// Delta returns +rate for increases and -rate for decreases.
func (e Event) Delta() decimal.Decimal {
	if e.Direction == Increase {
		return e.Rate
	}
	return e.Rate.Neg()
}

// MarketCondition is a themed bundle of candidate events drawn for a round.
type MarketCondition struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Events []Event `json:"events"`
}

// Event looks up one of the condition's events by id.
func (m *MarketCondition) Event(id string) (Event, bool) {
	for _, ev := range m.Events {
		if ev.ID == id {
			return ev, true
		}
	}
	return Event{}, false
}

// Notification tells an avenue agent that an event was spun for them.
// Terminal once AcceptedAt is set.
type Notification struct {
	ID         string     `json:"id"`
	ToAvenue   string     `json:"toAvenue"`
	EventID    string     `json:"eventId"`
	CreatedAt  time.Time  `json:"createdAt"`
	AcceptedAt *time.Time `json:"acceptedAt"`
}

// LedgerKind classifies ledger entries.
type LedgerKind string

const (
	LedgerEventImpact   LedgerKind = "event_impact"
	LedgerEventSpun     LedgerKind = "event_spun"
	LedgerEventAccepted LedgerKind = "event_accepted"
	LedgerTransaction   LedgerKind = "transaction"
)

// LedgerEntry is an immutable record. Entries are only removed by team
// deletion or a reset.
type LedgerEntry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"ts"`
	Kind      LedgerKind        `json:"kind"`
	TeamID    string            `json:"teamId"` // empty for wheel entries
	AvenueID  string            `json:"avenueId"`
	Amount    decimal.Decimal   `json:"amount"`
	Action    string            `json:"action"`
	Actor     string            `json:"by"`
	Round     int               `json:"round"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// MarshalJSON writes an empty TeamID as null.
func (l LedgerEntry) MarshalJSON() ([]byte, error) {
	type entry LedgerEntry
	out := struct {
		entry
		TeamID *string `json:"teamId"`
	}{entry: entry(l)}
	if l.TeamID != "" {
		out.TeamID = &l.TeamID
	}
	return json.Marshal(out)
}

// Phase is a state of the round state machine.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseMarketOpen Phase = "market_open"
	PhaseSpinning   Phase = "spinning"
	PhaseTrading    Phase = "trading"
	PhaseLocked     Phase = "locked"
	PhaseEnded      Phase = "ended"
)

// GameState is the process-wide round state.
type GameState struct {
	Phase             Phase      `json:"phase"`
	RoundIndex        int        `json:"roundIndex"`
	MarketConditionID string     `json:"marketConditionId,omitempty"`
	Headline          string     `json:"marketHeadline"`
	RoundEventIDs     []string   `json:"roundEventIds"`
	SpunEventIDs      []string   `json:"spunEventIds"`
	PhaseEndsAt       *time.Time `json:"phaseEndsAt"`
	LastUpdatedAt     *time.Time `json:"lastUpdatedAt"`
}

// Settings are the admin-tunable game parameters.
type Settings struct {
	StartingMoney     decimal.Decimal `json:"startingMoney"`
	RoundsTotal       int             `json:"roundsTotal"`
	MarketOpenSeconds int             `json:"marketOpenSeconds"`
	TradingSeconds    int             `json:"tradingSeconds"`
	EventsPerRound    int             `json:"eventsPerRound"`
	WheelEventsCount  int             `json:"wheelEventsCount"`
}

// Meta holds display strings for the event.
type Meta struct {
	EventName string `json:"eventName"`
	GameName  string `json:"gameName"`
	Copyright string `json:"copyright"`
}

// Auth holds the admin secret. Never exposed through views.
type Auth struct {
	AdminPIN string `json:"adminPin"`
}

// ResultRow is one team's settlement.
type ResultRow struct {
	Rank       int             `json:"rank"`
	TeamID     string          `json:"teamId"`
	TeamName   string          `json:"teamName"`
	FinalTotal decimal.Decimal `json:"finalTotal"`
	Profit     decimal.Decimal `json:"profit"`
	TaxGov     decimal.Decimal `json:"taxGov"`
	TaxNPS     decimal.Decimal `json:"taxNps"`
	TaxOther   decimal.Decimal `json:"taxOther"`
	TaxTotal   decimal.Decimal `json:"taxTotal"`
	AfterTax   decimal.Decimal `json:"afterTax"`
}

// Results is the ranked settlement computed at end of game.
type Results struct {
	ComputedAt time.Time   `json:"computedAt"`
	Rows       []ResultRow `json:"rows"`
}

// Snapshot is the single persisted document holding the whole game.
type Snapshot struct {
	Meta             Meta                       `json:"meta"`
	Auth             Auth                       `json:"auth"`
	Settings         Settings                   `json:"settings"`
	Teams            []*Team                    `json:"teams"`
	MarketConditions []*MarketCondition         `json:"marketConditions"`
	Current          GameState                  `json:"current"`
	Rates            map[string]decimal.Decimal `json:"rates"`
	Notifications    []*Notification            `json:"notifications"`
	Ledger           []LedgerEntry              `json:"ledger"`
	Results          *Results                   `json:"results"`
}

// Team finds a team by id.
func (s *Snapshot) Team(id string) *Team {
	for _, t := range s.Teams {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// MarketCondition finds a market condition by id.
func (s *Snapshot) MarketCondition(id string) *MarketCondition {
	for _, m := range s.MarketConditions {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Notification finds a notification by id.
func (s *Snapshot) Notification(id string) *Notification {
	for _, n := range s.Notifications {
		if n.ID == id {
			return n
		}
	}
	return nil
}
