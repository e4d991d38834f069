package api

import (
	"github.com/shopspring/decimal"

	"github.com/moneyrush/round-engine/internal/catalog"
	"github.com/moneyrush/round-engine/internal/model"
)

// AvenueView is the public projection of a catalog avenue.
type AvenueView struct {
	ID   string           `json:"id"`
	Name string           `json:"name"`
	Kind model.AvenueKind `json:"type"`
}

// TeamView is a team with its computed total.
type TeamView struct {
	ID       string                     `json:"id"`
	Name     string                     `json:"teamName"`
	Members  [2]model.Member            `json:"members"`
	Status   model.TeamStatus           `json:"status"`
	Cash     decimal.Decimal            `json:"cash"`
	Holdings map[string]decimal.Decimal `json:"holdings"`
	Total    decimal.Decimal            `json:"total"`
}

// ConditionView exposes a market condition without its events.
type ConditionView struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// AgentView identifies the calling agent.
type AgentView struct {
	Username string `json:"username"`
	Avenue   string `json:"avenue"`
}

// StateView is the role-scoped game state. The admin PIN is never part of
// any view.
type StateView struct {
	Meta             model.Meta                 `json:"meta"`
	Settings         model.Settings             `json:"settings"`
	Avenues          []AvenueView               `json:"avenues"`
	Teams            []TeamView                 `json:"teams"`
	MarketConditions []ConditionView            `json:"marketConditions"`
	Current          model.GameState            `json:"current"`
	Rates            map[string]decimal.Decimal `json:"rates"`
	Notifications    []*model.Notification      `json:"notifications"`
	Results          *model.Results             `json:"results"`
	Agent            *AgentView                 `json:"agent,omitempty"`
}

func publicView(s *model.Snapshot, cat *catalog.Catalog) StateView {
	v := StateView{
		Meta:             s.Meta,
		Settings:         s.Settings,
		Avenues:          make([]AvenueView, 0, len(cat.Avenues())),
		Teams:            make([]TeamView, 0, len(s.Teams)),
		MarketConditions: make([]ConditionView, 0, len(s.MarketConditions)),
		Current:          s.Current,
		Rates:            s.Rates,
		Notifications:    s.Notifications,
		Results:          s.Results,
	}
	if v.Notifications == nil {
		v.Notifications = []*model.Notification{}
	}
	if v.Current.RoundEventIDs == nil {
		v.Current.RoundEventIDs = []string{}
	}
	if v.Current.SpunEventIDs == nil {
		v.Current.SpunEventIDs = []string{}
	}
	for _, a := range cat.Avenues() {
		v.Avenues = append(v.Avenues, AvenueView{ID: a.ID, Name: a.Name, Kind: a.Kind})
	}
	for _, t := range s.Teams {
		v.Teams = append(v.Teams, TeamView{
			ID:       t.ID,
			Name:     t.Name,
			Members:  t.Members,
			Status:   t.Status,
			Cash:     t.Cash,
			Holdings: t.Holdings,
			Total:    t.Total(),
		})
	}
	for _, mc := range s.MarketConditions {
		v.MarketConditions = append(v.MarketConditions, ConditionView{ID: mc.ID, Title: mc.Title})
	}
	return v
}

func agentView(s *model.Snapshot, cat *catalog.Catalog, agent catalog.Agent) StateView {
	v := publicView(s, cat)
	v.Agent = &AgentView{Username: agent.Username, Avenue: agent.AvenueID}
	return v
}

// adminView is currently the public view; admins read market condition
// events from the operations that return them.
func adminView(s *model.Snapshot, cat *catalog.Catalog) StateView {
	return publicView(s, cat)
}
