package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"AgentCoin-Sim/internal/actlog"
	"AgentCoin-Sim/internal/agent"
	"AgentCoin-Sim/internal/catalog"
	"AgentCoin-Sim/internal/inventory"
	"AgentCoin-Sim/internal/ledger"
	"AgentCoin-Sim/internal/oracle"
)

type waitOracle struct{}

func (waitOracle) Decide(context.Context, oracle.Snapshot) (*oracle.Decision, error) {
	return &oracle.Decision{Action: oracle.ParseAction("WAIT"), Reason: "idle"}, nil
}

func newTestServer(t *testing.T) (*Server, *ledger.Ledger, *actlog.Log) {
	t.Helper()
	cat := catalog.Default()
	led := ledger.New(100)
	inv := inventory.NewStore()
	activity := actlog.New()
	orc := agent.New("Acquire 150 AGENT-COIN by trading data packets.", cat, led, inv, activity, waitOracle{},
		agent.WithTickInterval(time.Hour))

	srv := NewServer(":0", orc, led, inv, activity, cat)
	srv.rootCtx = context.Background()
	t.Cleanup(func() {
		if orc.Running() {
			_ = orc.Stop()
		}
	})
	return srv, led, activity
}

func TestHandleStateReturnsAgentState(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleState(rec, httptest.NewRequest(http.MethodGet, "/api/v1/agent/state", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var state struct {
		Status string `json:"status"`
		Goal   string `json:"goal"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Status != "STOPPED" {
		t.Fatalf("unexpected status: %s", state.Status)
	}
	if state.Goal == "" {
		t.Fatalf("goal missing from state payload")
	}
}

func TestHandleStartAndStop(t *testing.T) {
	srv, _, activity := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleStart(rec, httptest.NewRequest(http.MethodPost, "/api/v1/agent/start", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("start: unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	// 重复启动应映射为 409。
	rec = httptest.NewRecorder()
	srv.handleStart(rec, httptest.NewRequest(http.MethodPost, "/api/v1/agent/start", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("second start: expected 409, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.handleStop(rec, httptest.NewRequest(http.MethodPost, "/api/v1/agent/stop", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stop: unexpected status %d", rec.Code)
	}

	found := false
	for _, entry := range activity.Entries() {
		if entry.Message == "Agent started." {
			found = true
		}
	}
	if !found {
		t.Fatalf("start entry missing from activity log")
	}
}

func TestHandleStartRequiresPost(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleStart(rec, httptest.NewRequest(http.MethodGet, "/api/v1/agent/start", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandleGoal(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := strings.NewReader(`{"goal":"Earn 500 AGENT-COIN."}`)
	rec := httptest.NewRecorder()
	srv.handleGoal(rec, httptest.NewRequest(http.MethodPost, "/api/v1/agent/goal", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d: %s", rec.Code, rec.Body.String())
	}

	var state struct {
		Goal string `json:"goal"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Goal != "Earn 500 AGENT-COIN." {
		t.Fatalf("goal was not updated: %q", state.Goal)
	}
}

func TestHandleGoalRejectsEmpty(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleGoal(rec, httptest.NewRequest(http.MethodPost, "/api/v1/agent/goal", strings.NewReader(`{"goal":""}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleWallet(t *testing.T) {
	srv, led, _ := newTestServer(t)
	led.Apply(context.Background(), "Payment for Price Oracle", -5, ledger.QualityNeutral)

	rec := httptest.NewRecorder()
	srv.handleWallet(rec, httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var wallet struct {
		Balance      float64 `json:"balance"`
		Transactions []struct {
			Description string `json:"description"`
		} `json:"transactions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&wallet); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wallet.Balance != 95 {
		t.Fatalf("unexpected balance: %f", wallet.Balance)
	}
	if len(wallet.Transactions) != 1 || wallet.Transactions[0].Description != "Payment for Price Oracle" {
		t.Fatalf("unexpected transactions: %+v", wallet.Transactions)
	}
}

func TestHandleExport(t *testing.T) {
	srv, led, _ := newTestServer(t)
	led.Apply(context.Background(), "Payment for Price Oracle", -5, ledger.QualityNeutral)

	rec := httptest.NewRecorder()
	srv.handleExport(rec, httptest.NewRequest(http.MethodGet, "/api/v1/wallet/export", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
		t.Fatalf("unexpected content type: %s", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "transaction-history.csv") {
		t.Fatalf("unexpected content disposition: %s", got)
	}
	if !strings.HasPrefix(rec.Body.String(), "ID,Timestamp,Description,Amount,Quality") {
		t.Fatalf("unexpected export body:\n%s", rec.Body.String())
	}
}

func TestHandleServices(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleServices(rec, httptest.NewRequest(http.MethodGet, "/api/v1/services", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var services []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&services); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(services) != 7 {
		t.Fatalf("expected 7 services, got %d", len(services))
	}
}

func TestHandleLog(t *testing.T) {
	srv, _, activity := newTestServer(t)
	activity.Append(context.Background(), actlog.TypeSystem, "Agent started.")

	rec := httptest.NewRecorder()
	srv.handleLog(rec, httptest.NewRequest(http.MethodGet, "/api/v1/log", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var entries []struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Message != "Agent started." {
		t.Fatalf("unexpected log payload: %+v", entries)
	}
}
