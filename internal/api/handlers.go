package api

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneyrush/round-engine/internal/game"
	"github.com/moneyrush/round-engine/internal/model"
)

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]any{"ts": s.now().UTC().Format(time.RFC3339Nano)})
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	cat := s.engine.Catalog()

	role, agent := s.sessions.Lookup(bearerToken(r))
	var view StateView
	switch role {
	case RoleAdmin:
		view = adminView(snap, cat)
	case RoleAgent:
		view = agentView(snap, cat, agent)
	default:
		view = publicView(snap, cat)
	}
	writeOK(w, map[string]any{"role": role, "state": view})
}

func (s *Server) print(w http.ResponseWriter, r *http.Request) {
	rows, err := s.engine.Standings()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := printTemplate.Execute(w, newPrintData(s.engine.Snapshot().Meta, rows)); err != nil {
		s.log.ErrorContext(r.Context(), "render print report", "error", err)
	}
}

type memberBody struct {
	Name      text `json:"name"`
	Institute text `json:"institute"`
}

type registerBody struct {
	TeamName text       `json:"teamName"`
	Member1  memberBody `json:"member1"`
	Member2  memberBody `json:"member2"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if !s.decode(w, r, &body) {
		return
	}
	team, err := s.engine.Register(r.Context(), game.RegisterRequest{
		TeamName: body.TeamName.String(),
		Member1:  model.Member{Name: body.Member1.Name.String(), Institute: body.Member1.Institute.String()},
		Member2:  model.Member{Name: body.Member2.Name.String(), Institute: body.Member2.Institute.String()},
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"teamId": team.ID})
}

type loginBody struct {
	Username text `json:"username"`
	PIN      text `json:"pin"`
}

func (s *Server) adminLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if !s.decode(w, r, &body) {
		return
	}
	if !s.engine.VerifyAdminPIN(string(body.PIN)) {
		s.writeError(w, r, game.Unauthorized("Invalid admin PIN"))
		return
	}
	writeOK(w, map[string]any{"token": s.sessions.IssueAdmin()})
}

func (s *Server) agentLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if !s.decode(w, r, &body) {
		return
	}
	agent, ok := s.engine.Catalog().Authenticate(body.Username.String(), body.PIN.String())
	if !ok {
		s.writeError(w, r, game.Unauthorized("Invalid agent login"))
		return
	}
	s.log.InfoContext(r.Context(), "agent logged in", "agent", agent.Username, "avenue", agent.AvenueID)
	writeOK(w, map[string]any{"token": s.sessions.IssueAgent(agent), "avenue": agent.AvenueID})
}

type settingsBody struct {
	StartingMoney     number `json:"startingMoney"`
	RoundsTotal       number `json:"roundsTotal"`
	MarketOpenSeconds number `json:"marketOpenSeconds"`
	TradingSeconds    number `json:"tradingSeconds"`
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var body settingsBody
	if !s.decode(w, r, &body) {
		return
	}

	var u game.SettingsUpdate
	if body.StartingMoney.Set {
		if !body.StartingMoney.Valid {
			writeFailure(w, http.StatusBadRequest, "validation", "Invalid startingMoney")
			return
		}
		v := body.StartingMoney.Value
		u.StartingMoney = &v
	}
	for _, f := range []struct {
		name string
		in   number
		dst  **int
	}{
		{"roundsTotal", body.RoundsTotal, &u.RoundsTotal},
		{"marketOpenSeconds", body.MarketOpenSeconds, &u.MarketOpenSeconds},
		{"tradingSeconds", body.TradingSeconds, &u.TradingSeconds},
	} {
		if !f.in.Set {
			continue
		}
		n, ok := f.in.wholeNumber()
		if !ok {
			writeFailure(w, http.StatusBadRequest, "validation", "Invalid "+f.name)
			return
		}
		*f.dst = &n
	}

	if err := s.engine.UpdateSettings(r.Context(), u); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) addMarketCondition(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title text `json:"title"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	mc, err := s.engine.AddMarketCondition(r.Context(), body.Title.String())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"id": mc.ID})
}

type eventBody struct {
	MarketConditionID text   `json:"marketConditionId"`
	Text              text   `json:"text"`
	AvenueID          text   `json:"avenueId"`
	Direction         text   `json:"direction"`
	Rate              number `json:"rate"`
}

func (s *Server) addEvent(w http.ResponseWriter, r *http.Request) {
	var body eventBody
	if !s.decode(w, r, &body) {
		return
	}
	rate := body.Rate.Value
	if !body.Rate.Valid {
		// Fails the engine's non-negative check in its usual order.
		rate = decimal.NewFromInt(-1)
	}
	ev, err := s.engine.AddEvent(r.Context(), game.EventRequest{
		MarketConditionID: body.MarketConditionID.String(),
		Text:              body.Text.String(),
		AvenueID:          body.AvenueID.String(),
		Direction:         model.Direction(body.Direction.String()),
		Rate:              rate,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"id": ev.ID})
}

func (s *Server) initialize(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.engine.Initialize(r.Context()))
}

func (s *Server) resetAll(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.engine.ResetAll(r.Context()))
}

type teamBody struct {
	TeamID text `json:"teamId"`
}

func (s *Server) approve(w http.ResponseWriter, r *http.Request) {
	s.withTeam(w, r, s.engine.Approve)
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request) {
	s.withTeam(w, r, s.engine.Reject)
}

func (s *Server) deleteTeam(w http.ResponseWriter, r *http.Request) {
	s.withTeam(w, r, s.engine.DeleteTeam)
}

func (s *Server) marketScan(w http.ResponseWriter, r *http.Request) {
	mc, err := s.engine.MarketScan(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"marketConditionId": mc.ID, "title": mc.Title})
}

func (s *Server) beginSpin(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.engine.BeginSpin(r.Context()))
}

func (s *Server) spin(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Spin(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{
		"event":          res.Event,
		"delta":          res.Event.Delta(),
		"notificationId": res.NotificationID,
	})
}

func (s *Server) openTrading(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.engine.OpenTrading(r.Context()))
}

func (s *Server) closeTrading(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.engine.CloseTrading(r.Context()))
}

func (s *Server) endGame(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.EndGame(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"results": res})
}

func (s *Server) acceptEvent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NotificationID text `json:"notificationId"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	res, err := s.engine.AcceptEvent(r.Context(), agentFrom(r.Context()), body.NotificationID.String())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"delta": res.Delta, "rate": res.NewRate})
}

type txBody struct {
	TeamID     text   `json:"teamId"`
	Action     text   `json:"action"`
	Amount     number `json:"amount"`
	ToAvenueID text   `json:"toAvenueId"`
}

func (s *Server) transact(w http.ResponseWriter, r *http.Request) {
	var body txBody
	if !s.decode(w, r, &body) {
		return
	}
	team, err := s.engine.Transact(r.Context(), agentFrom(r.Context()), game.TxRequest{
		TeamID:     body.TeamID.String(),
		Action:     body.Action.String(),
		Amount:     body.Amount.Value, // zero when missing or malformed, rejected as non-positive
		ToAvenueID: body.ToAvenueID.String(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, map[string]any{"cash": team.Cash, "holdings": team.Holdings})
}

func (s *Server) withTeam(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, teamID string) error) {
	var body teamBody
	if !s.decode(w, r, &body) {
		return
	}
	s.respond(w, r, op(r.Context(), body.TeamID.String()))
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeBody(r, v); err != nil {
		writeFailure(w, http.StatusBadRequest, "validation", "Invalid request body")
		return false
	}
	return true
}
