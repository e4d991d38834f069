package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/moneyrush/round-engine/internal/api"
	"github.com/moneyrush/round-engine/internal/catalog"
	"github.com/moneyrush/round-engine/internal/game"
	"github.com/moneyrush/round-engine/internal/model"
	"github.com/moneyrush/round-engine/internal/store"
)

type firstPick struct{}

func (firstPick) IntN(int) int { return 0 }

type failingStore struct {
	*store.MemoryStore
	fail bool
}

func (s *failingStore) Save(ctx context.Context, snap *model.Snapshot) error {
	if s.fail {
		return errors.New("connection reset")
	}
	return s.MemoryStore.Save(ctx, snap)
}

type testAPI struct {
	handler http.Handler
	store   *failingStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := &failingStore{MemoryStore: store.NewMemoryStore()}
	e, err := game.New(context.Background(), catalog.Default(), st, game.DefaultBootstrap(),
		game.WithSource(firstPick{}),
		game.WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	srv := api.New(e, api.Options{Logger: logger})
	return &testAPI{handler: srv.Routes(), store: st}
}

type response struct {
	status int
	raw    string
	body   map[string]any
}

func (ta *testAPI) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ta.handler.ServeHTTP(w, req)

	res := response{status: w.Code, raw: w.Body.String()}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &res.body); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, res.raw)
		}
	}
	return res
}

func (ta *testAPI) ok(t *testing.T, method, path, token string, body any) map[string]any {
	t.Helper()
	res := ta.do(t, method, path, token, body)
	if res.status != http.StatusOK || res.body["ok"] != true {
		t.Fatalf("%s %s: status %d body %s", method, path, res.status, res.raw)
	}
	return res.body
}

func expectFailure(t *testing.T, res response, status int, code, msg string) {
	t.Helper()
	if res.status != status {
		t.Fatalf("status = %d, want %d (%s)", res.status, status, res.raw)
	}
	if res.body["ok"] != false || res.body["code"] != code {
		t.Errorf("envelope = %v, want code %s", res.body, code)
	}
	if msg != "" && res.body["error"] != msg {
		t.Errorf("error = %v, want %q", res.body["error"], msg)
	}
}

func (ta *testAPI) adminToken(t *testing.T) string {
	t.Helper()
	return ta.ok(t, "POST", "/api/admin/login", "", map[string]any{"pin": "0000"})["token"].(string)
}

func (ta *testAPI) agentToken(t *testing.T, username string) string {
	t.Helper()
	return ta.ok(t, "POST", "/api/agent/login", "", map[string]any{"username": username, "pin": 1234})["token"].(string)
}

func registerBody(name string) map[string]any {
	return map[string]any{
		"teamName": name,
		"member1":  map[string]any{"name": "Asha", "institute": "IIM"},
		"member2":  map[string]any{"name": "Ravi", "institute": "IIT"},
	}
}

func stateOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	st, ok := body["state"].(map[string]any)
	if !ok {
		t.Fatalf("no state in %v", body)
	}
	return st
}

func TestOpsEndpoints(t *testing.T) {
	ta := newTestAPI(t)

	if res := ta.do(t, "GET", "/health", "", nil); res.status != http.StatusOK || res.body["status"] != "ok" {
		t.Errorf("health: %d %s", res.status, res.raw)
	}
	if res := ta.do(t, "GET", "/metrics", "", nil); res.status != http.StatusOK {
		t.Errorf("metrics: %d", res.status)
	}
	body := ta.ok(t, "GET", "/api/ping", "", nil)
	if _, ok := body["ts"].(string); !ok {
		t.Errorf("ping missing ts: %v", body)
	}
	expectFailure(t, ta.do(t, "GET", "/api/nope", "", nil), http.StatusNotFound, "not_found", "Unknown API endpoint")

	res := ta.do(t, "OPTIONS", "/api/register", "", nil)
	if res.status != http.StatusNoContent {
		t.Errorf("preflight status = %d", res.status)
	}
}

func TestLogin(t *testing.T) {
	ta := newTestAPI(t)

	expectFailure(t, ta.do(t, "POST", "/api/admin/login", "", map[string]any{"pin": "1111"}),
		http.StatusUnauthorized, "unauthorized", "Invalid admin PIN")
	expectFailure(t, ta.do(t, "POST", "/api/agent/login", "", map[string]any{"username": "AG_GOLD", "pin": "9999"}),
		http.StatusUnauthorized, "unauthorized", "Invalid agent login")

	token := ta.adminToken(t)
	if !strings.HasPrefix(token, "adm_") {
		t.Errorf("admin token = %q", token)
	}

	body := ta.ok(t, "POST", "/api/agent/login", "", map[string]any{"username": " AG_GOLD ", "pin": "1234"})
	if body["avenue"] != "gold" || !strings.HasPrefix(body["token"].(string), "agt_") {
		t.Errorf("agent login = %v", body)
	}
}

func TestAuthorization(t *testing.T) {
	ta := newTestAPI(t)
	agent := ta.agentToken(t, "AG_GOLD")
	admin := ta.adminToken(t)

	expectFailure(t, ta.do(t, "POST", "/api/admin/marketScan", "", nil),
		http.StatusUnauthorized, "unauthorized", "Admin auth required")
	expectFailure(t, ta.do(t, "POST", "/api/admin/marketScan", agent, nil),
		http.StatusUnauthorized, "unauthorized", "Admin auth required")
	expectFailure(t, ta.do(t, "POST", "/api/agent/tx", admin, map[string]any{}),
		http.StatusUnauthorized, "unauthorized", "Agent auth required")
	expectFailure(t, ta.do(t, "POST", "/api/agent/acceptEvent", "bogus", map[string]any{}),
		http.StatusUnauthorized, "unauthorized", "Agent auth required")
}

func TestState_RoleScoped(t *testing.T) {
	ta := newTestAPI(t)
	ta.ok(t, "POST", "/api/register", "", registerBody("Bulls"))

	pub := ta.ok(t, "GET", "/api/state", "", nil)
	if pub["role"] != api.RolePublic {
		t.Errorf("role = %v", pub["role"])
	}
	st := stateOf(t, pub)
	if _, ok := st["agent"]; ok {
		t.Error("public view must not carry an agent")
	}
	teams := st["teams"].([]any)
	if len(teams) != 1 || teams[0].(map[string]any)["total"] != "10000" {
		t.Errorf("teams = %v", teams)
	}
	if len(st["avenues"].([]any)) != 11 {
		t.Errorf("avenues = %v", st["avenues"])
	}

	agentState := ta.ok(t, "GET", "/api/state", ta.agentToken(t, "AG_IT"), nil)
	if agentState["role"] != api.RoleAgent {
		t.Errorf("role = %v", agentState["role"])
	}
	ag := stateOf(t, agentState)["agent"].(map[string]any)
	if ag["username"] != "AG_IT" || ag["avenue"] != "stock_it" {
		t.Errorf("agent = %v", ag)
	}

	admin := ta.do(t, "GET", "/api/state", ta.adminToken(t), nil)
	if admin.body["role"] != api.RoleAdmin {
		t.Errorf("role = %v", admin.body["role"])
	}
	for _, res := range []string{admin.raw, ta.do(t, "GET", "/api/state", "", nil).raw} {
		if strings.Contains(res, "adminPin") || strings.Contains(res, `"auth"`) {
			t.Errorf("admin PIN exposed: %s", res)
		}
	}
}

func TestRegister_Validation(t *testing.T) {
	ta := newTestAPI(t)
	ta.ok(t, "POST", "/api/register", "", registerBody("Bulls"))

	expectFailure(t, ta.do(t, "POST", "/api/register", "", registerBody("  ")),
		http.StatusBadRequest, "validation", "Team name required")
	expectFailure(t, ta.do(t, "POST", "/api/register", "", registerBody("BULLS")),
		http.StatusBadRequest, "validation", "Team name must be unique")
	expectFailure(t, ta.do(t, "POST", "/api/register", "", map[string]any{"teamName": "Bears"}),
		http.StatusBadRequest, "validation", "Both member names required")
	expectFailure(t, ta.do(t, "POST", "/api/register", "", `{"teamName":`),
		http.StatusBadRequest, "validation", "Invalid request body")
}

func TestSettings(t *testing.T) {
	ta := newTestAPI(t)
	admin := ta.adminToken(t)

	expectFailure(t, ta.do(t, "POST", "/api/admin/settings", admin, map[string]any{"roundsTotal": 2.5}),
		http.StatusBadRequest, "validation", "Invalid roundsTotal")
	expectFailure(t, ta.do(t, "POST", "/api/admin/settings", admin, map[string]any{"startingMoney": "lots"}),
		http.StatusBadRequest, "validation", "Invalid startingMoney")
	expectFailure(t, ta.do(t, "POST", "/api/admin/settings", admin, map[string]any{"tradingSeconds": 0}),
		http.StatusBadRequest, "validation", "Invalid tradingSeconds")
	expectFailure(t, ta.do(t, "POST", "/api/admin/settings", admin, map[string]any{"roundsTotal": 1e30}),
		http.StatusBadRequest, "validation", "Invalid roundsTotal")
	expectFailure(t, ta.do(t, "POST", "/api/admin/settings", admin, map[string]any{"marketOpenSeconds": "10000000000"}),
		http.StatusBadRequest, "validation", "Invalid marketOpenSeconds")

	ta.ok(t, "POST", "/api/admin/settings", admin, map[string]any{
		"startingMoney":  "20000.50",
		"roundsTotal":    6,
		"tradingSeconds": "90",
	})
	settings := stateOf(t, ta.ok(t, "GET", "/api/state", "", nil))["settings"].(map[string]any)
	if settings["startingMoney"] != "20000.5" || settings["roundsTotal"] != float64(6) || settings["tradingSeconds"] != float64(90) {
		t.Errorf("settings = %v", settings)
	}
	if settings["marketOpenSeconds"] != float64(120) {
		t.Errorf("untouched field changed: %v", settings)
	}
}

func TestRoundFlow(t *testing.T) {
	ta := newTestAPI(t)
	admin := ta.adminToken(t)
	gold := ta.agentToken(t, "AG_GOLD")
	silver := ta.agentToken(t, "AG_SILVER")

	teamID := ta.ok(t, "POST", "/api/register", "", registerBody("Bulls"))["teamId"].(string)
	mcID := ta.ok(t, "POST", "/api/admin/marketCondition/add", admin, map[string]any{"title": "Gold rush"})["id"].(string)

	expectFailure(t, ta.do(t, "POST", "/api/admin/event/add", admin, map[string]any{
		"marketConditionId": mcID, "text": "Bad", "avenueId": "gold", "direction": "increase", "rate": "ten",
	}), http.StatusBadRequest, "validation", "Rate must be a non-negative number")
	expectFailure(t, ta.do(t, "POST", "/api/admin/event/add", admin, map[string]any{
		"marketConditionId": mcID, "text": "Bad", "avenueId": "moon", "direction": "increase", "rate": 1,
	}), http.StatusNotFound, "not_found", "Avenue not found")
	ta.ok(t, "POST", "/api/admin/event/add", admin, map[string]any{
		"marketConditionId": mcID, "text": "Central banks buy gold", "avenueId": "gold", "direction": "increase", "rate": 10,
	})

	scan := ta.ok(t, "POST", "/api/admin/marketScan", admin, nil)
	if scan["marketConditionId"] != mcID || scan["title"] != "Gold rush" {
		t.Errorf("scan = %v", scan)
	}
	expectFailure(t, ta.do(t, "POST", "/api/admin/spin", admin, nil),
		http.StatusBadRequest, "validation", "Not in spinning phase")
	ta.ok(t, "POST", "/api/admin/beginSpin", admin, nil)

	spin := ta.ok(t, "POST", "/api/admin/spin", admin, nil)
	if spin["delta"] != "10" {
		t.Errorf("spin delta = %v", spin["delta"])
	}
	ntf := spin["notificationId"].(string)
	expectFailure(t, ta.do(t, "POST", "/api/admin/spin", admin, nil),
		http.StatusBadRequest, "validation", "No events left on wheel")

	expectFailure(t, ta.do(t, "POST", "/api/agent/tx", gold, map[string]any{"teamId": teamID, "action": "invest", "amount": 1000}),
		http.StatusBadRequest, "validation", "Trading window is closed")
	ta.ok(t, "POST", "/api/admin/openTrading", admin, nil)

	expectFailure(t, ta.do(t, "POST", "/api/agent/tx", gold, map[string]any{"teamId": teamID, "action": "invest", "amount": "abc"}),
		http.StatusBadRequest, "validation", "Amount must be > 0")
	expectFailure(t, ta.do(t, "POST", "/api/agent/tx", gold, map[string]any{"teamId": "team_x", "action": "invest", "amount": 1}),
		http.StatusNotFound, "not_found", "Team not found")
	tx := ta.ok(t, "POST", "/api/agent/tx", gold, map[string]any{"teamId": teamID, "action": "invest", "amount": "1000"})
	if tx["cash"] != "9000" {
		t.Errorf("cash after invest = %v", tx["cash"])
	}

	expectFailure(t, ta.do(t, "POST", "/api/agent/acceptEvent", silver, map[string]any{"notificationId": ntf}),
		http.StatusForbidden, "forbidden", "Not your avenue")
	expectFailure(t, ta.do(t, "POST", "/api/agent/acceptEvent", gold, map[string]any{"notificationId": "ntf_missing"}),
		http.StatusNotFound, "not_found", "Notification not found")

	accepted := ta.ok(t, "POST", "/api/agent/acceptEvent", gold, map[string]any{"notificationId": ntf})
	if accepted["rate"] != "12.8" {
		t.Errorf("rate after accept = %v", accepted["rate"])
	}
	expectFailure(t, ta.do(t, "POST", "/api/agent/acceptEvent", gold, map[string]any{"notificationId": ntf}),
		http.StatusBadRequest, "validation", "Already accepted")

	team := stateOf(t, ta.ok(t, "GET", "/api/state", "", nil))["teams"].([]any)[0].(map[string]any)
	if team["holdings"].(map[string]any)["gold"] != "1128" || team["total"] != "10128" {
		t.Errorf("team after accept = %v", team)
	}

	ta.ok(t, "POST", "/api/admin/closeTrading", admin, nil)
	results := ta.ok(t, "POST", "/api/admin/endGame", admin, nil)["results"].(map[string]any)
	rows := results["rows"].([]any)
	if len(rows) != 1 || rows[0].(map[string]any)["teamId"] != teamID {
		t.Errorf("results = %v", results)
	}
	expectFailure(t, ta.do(t, "POST", "/api/admin/marketScan", admin, nil),
		http.StatusBadRequest, "validation", "Game has ended; initialize to play again")

	ta.ok(t, "POST", "/api/admin/initialize", admin, nil)
	st := stateOf(t, ta.ok(t, "GET", "/api/state", "", nil))
	if st["current"].(map[string]any)["phase"] != string(model.PhaseIdle) || st["results"] != nil {
		t.Errorf("initialize did not reset: %v", st["current"])
	}
}

func TestTeamAdministration(t *testing.T) {
	ta := newTestAPI(t)
	admin := ta.adminToken(t)
	teamID := ta.ok(t, "POST", "/api/register", "", registerBody("Bulls"))["teamId"].(string)

	ta.ok(t, "POST", "/api/admin/approve", admin, map[string]any{"teamId": teamID})
	expectFailure(t, ta.do(t, "POST", "/api/admin/approve", admin, map[string]any{"teamId": "team_x"}),
		http.StatusNotFound, "not_found", "Team not found")
	ta.ok(t, "POST", "/api/admin/team/delete", admin, map[string]any{"teamId": teamID})
	expectFailure(t, ta.do(t, "POST", "/api/admin/reject", admin, map[string]any{"teamId": teamID}),
		http.StatusNotFound, "not_found", "Team not found")

	ta.ok(t, "POST", "/api/admin/marketCondition/add", admin, map[string]any{"title": "Calm"})
	ta.ok(t, "POST", "/api/admin/resetAll", admin, nil)
	st := stateOf(t, ta.ok(t, "GET", "/api/state", "", nil))
	if len(st["marketConditions"].([]any)) != 0 {
		t.Errorf("resetAll kept market conditions: %v", st["marketConditions"])
	}
}

func TestPersistFailure_IsGeneric(t *testing.T) {
	ta := newTestAPI(t)
	ta.store.fail = true

	expectFailure(t, ta.do(t, "POST", "/api/register", "", registerBody("Bulls")),
		http.StatusInternalServerError, "internal", "Server error")

	ta.store.fail = false
	st := stateOf(t, ta.ok(t, "GET", "/api/state", "", nil))
	if len(st["teams"].([]any)) != 0 {
		t.Error("failed registration leaked into state")
	}
}

func TestPrint(t *testing.T) {
	ta := newTestAPI(t)
	ta.ok(t, "POST", "/api/register", "", registerBody("<b>Bulls</b>"))
	ta.ok(t, "POST", "/api/register", "", registerBody("Bears"))

	res := ta.do(t, "GET", "/api/print", "", nil)
	if res.status != http.StatusOK {
		t.Fatalf("print status = %d", res.status)
	}
	if !strings.Contains(res.raw, "&lt;b&gt;Bulls&lt;/b&gt;") || strings.Contains(res.raw, "<b>Bulls") {
		t.Error("team names must be escaped")
	}
	if !strings.Contains(res.raw, "Bears") || !strings.Contains(res.raw, "10000.00") {
		t.Errorf("report missing rows: %s", res.raw)
	}
}

func TestSessions_Expire(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	s := api.NewSessions(time.Hour, func() time.Time { return now })

	admin := s.IssueAdmin()
	agent := s.IssueAgent(catalog.Agent{Username: "AG_GOLD", AvenueID: "gold"})

	if role, _ := s.Lookup(admin); role != api.RoleAdmin {
		t.Errorf("admin role = %s", role)
	}
	role, ag := s.Lookup(agent)
	if role != api.RoleAgent || ag.AvenueID != "gold" {
		t.Errorf("agent lookup = %s %+v", role, ag)
	}
	if role, _ := s.Lookup("unknown"); role != api.RolePublic {
		t.Errorf("unknown token role = %s", role)
	}

	now = now.Add(time.Hour)
	if role, _ := s.Lookup(admin); role != api.RolePublic {
		t.Errorf("expired token still %s", role)
	}
	if s.Len() != 0 {
		t.Errorf("expired tokens kept: %d", s.Len())
	}
}
