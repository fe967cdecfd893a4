package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/dynastyops/capledger/internal/domain/contract"
	"github.com/dynastyops/capledger/internal/domain/deadcap"
	"github.com/dynastyops/capledger/internal/domain/ledger"
	"github.com/dynastyops/capledger/internal/infrastructure/repository/memory"
	"github.com/dynastyops/capledger/internal/platform/cache"
	"github.com/dynastyops/capledger/internal/usecase"
)

const testJobToken = "job-secret"

type stubIDs struct{ n int }

func (g *stubIDs) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("id-%04d", g.n), nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	contracts := memory.NewContractRepository()
	obligations := memory.NewObligationRepository()
	franchises := memory.NewFranchiseRepository(memory.SeedFranchises(2026))
	postings := memory.NewPostingRepository()
	led := ledger.New(1000)

	txService := usecase.NewTransactionService(
		contracts,
		obligations,
		franchises,
		postings,
		led,
		deadcap.NewCalculator(deadcap.DefaultSchedule()),
		contract.DefaultShapeRules(),
		&stubIDs{},
		2026,
		48*time.Hour,
		nil,
	)
	projectionService := usecase.NewProjectionService(franchises, obligations, led, txService, 4, cache.NewStore(time.Minute), nil, nil)
	reconcileService := usecase.NewReconcileService(franchises, led, nil, txService, txService, nil)
	auctionService := usecase.NewAuctionService(txService, contract.DefaultShapeRules(), nil)
	contractService := usecase.NewContractService(contracts, nil)
	franchiseService := usecase.NewFranchiseService(franchises, nil)

	handler := NewHandler(txService, auctionService, projectionService, reconcileService, contractService, franchiseService, nil)
	return NewRouter(handler, nil, nil, testJobToken)
}

func doJSON(t *testing.T, router http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var envelope map[string]any
	if rec.Body.Len() > 0 {
		if err := sonic.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("unmarshal envelope: %v body=%s", err, rec.Body.String())
		}
	}
	return rec, envelope
}

func TestRouter_Healthz(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := envelope["data"].(map[string]any)
	if data["status"] != "ok" {
		t.Fatalf("unexpected health payload: %v", data)
	}
}

func TestRouter_SignEventAndReadCap(t *testing.T) {
	router := newTestRouter(t)

	body := `{
		"event_type": "sign",
		"player_id": "ply-1",
		"franchise_id": "frn-ironhorses",
		"total_value": 100,
		"duration": 5,
		"payments": [10, 15, 20, 25, 30],
		"kind": "yearly",
		"occurred_at": "2026-09-01T12:00:00Z"
	}`
	rec, envelope := doJSON(t, router, http.MethodPost, "/v1/events", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	data := envelope["data"].(map[string]any)
	if s, _ := data["contract_id"].(string); s == "" {
		t.Fatalf("receipt missing contract id: %v", data)
	}
	if s, _ := data["event_id"].(string); s == "" {
		t.Fatalf("receipt missing event id: %v", data)
	}
	if got := data["available_cap"].(float64); got != 990 {
		t.Fatalf("unexpected available cap: got=%v want=990", got)
	}

	rec, envelope = doJSON(t, router, http.MethodGet, "/v1/franchises/frn-ironhorses/cap?season=2027", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	entry := envelope["data"].(map[string]any)
	if got := entry["available_cap"].(float64); got != 985 {
		t.Fatalf("unexpected 2027 cap: got=%v want=985", got)
	}

	rec, envelope = doJSON(t, router, http.MethodGet, "/v1/contracts/ply-1/history", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rows := envelope["data"].([]any)
	if len(rows) != 1 {
		t.Fatalf("unexpected history length: %d", len(rows))
	}
}

func TestRouter_RejectedEventMapsToConflict(t *testing.T) {
	router := newTestRouter(t)

	body := `{
		"event_type": "sign",
		"player_id": "ply-1",
		"franchise_id": "frn-ironhorses",
		"total_value": 3300,
		"duration": 3,
		"payments": [1100, 1100, 1100],
		"kind": "yearly",
		"occurred_at": "2026-09-01T12:00:00Z"
	}`
	rec, envelope := doJSON(t, router, http.MethodPost, "/v1/events", body, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rec.Code, rec.Body.String())
	}
	errorObj := envelope["error"].(map[string]any)
	if errorObj["status"] != "FAILED_PRECONDITION" {
		t.Fatalf("unexpected error status: %v", errorObj["status"])
	}
}

func TestRouter_ValidationFailureIsBadRequest(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodPost, "/v1/events", `{"player_id": "ply-1"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRouter_ResolveAuction(t *testing.T) {
	router := newTestRouter(t)

	body := `{
		"mode": "fasa",
		"closed_at": "2026-09-02T20:00:00Z",
		"bids": [
			{"player_id": "ply-fa", "franchise_id": "frn-ironhorses", "total_value": 300, "duration": 3, "payments": [100, 100, 100], "submitted_at": "2026-09-02T19:00:00Z"},
			{"player_id": "ply-fa", "franchise_id": "frn-nightmares", "total_value": 240, "duration": 3, "payments": [80, 80, 80], "submitted_at": "2026-09-02T19:05:00Z"}
		]
	}`
	rec, envelope := doJSON(t, router, http.MethodPost, "/v1/auctions/resolve", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	data := envelope["data"].(map[string]any)
	winner := data["winner"].(map[string]any)
	if winner["franchise_id"] != "frn-ironhorses" {
		t.Fatalf("unexpected winner: %v", winner["franchise_id"])
	}
	revealed := data["revealed"].([]any)
	if len(revealed) != 1 {
		t.Fatalf("blind auction must reveal one bid, got %d", len(revealed))
	}
}

func TestRouter_InternalRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodPost, "/v1/internal/advance-season", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec, envelope := doJSON(t, router, http.MethodPost, "/v1/internal/advance-season", "", map[string]string{"X-Internal-Job-Token": testJobToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
	data := envelope["data"].(map[string]any)
	if got := data["current_season"].(float64); got != 2027 {
		t.Fatalf("unexpected season: got=%v want=2027", got)
	}
}

func TestRouter_ReconcileEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodPost, "/v1/internal/reconcile", "", map[string]string{"X-Internal-Job-Token": testJobToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := envelope["data"].(map[string]any)
	if clean, _ := data["clean"].(bool); !clean {
		t.Fatalf("expected clean report, got %v", data)
	}
}

func TestRouter_ListFranchises(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodGet, "/v1/franchises", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	items := envelope["data"].([]any)
	if len(items) != 12 {
		t.Fatalf("unexpected franchise count: got=%d want=12", len(items))
	}
}

func TestRouter_TransferOwnership(t *testing.T) {
	router := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodPut, "/v1/franchises/frn-ironhorses/owner", `{"owner": "rowan"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	data := envelope["data"].(map[string]any)
	if data["owner"] != "rowan" {
		t.Fatalf("unexpected owner: %v", data["owner"])
	}

	rec, _ = doJSON(t, router, http.MethodPut, "/v1/franchises/frn-ghost/owner", `{"owner": "rowan"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
