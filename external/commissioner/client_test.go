package commissioner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dynastyops/capledger/internal/platform/resilience"
)

func newTestClient(t *testing.T, baseURL string, breaker resilience.CircuitBreakerConfig) *Client {
	t.Helper()

	client, err := NewClient(ClientConfig{
		BaseURL:        baseURL,
		Token:          "test-token",
		Timeout:        2 * time.Second,
		CircuitBreaker: breaker,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClient_RejectsBadBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(ClientConfig{BaseURL: ""}); err == nil {
		t.Fatal("expected error for empty base url")
	}
	if _, err := NewClient(ClientConfig{BaseURL: "ftp://commissioner.example.com"}); err == nil {
		t.Fatal("expected error for non-http base url")
	}
}

func TestCapSnapshot_ParsesEnvelope(t *testing.T) {
	t.Parallel()

	var gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		if r.URL.Path != "/v1/franchises/frn-ironhorses/cap-usage" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("season") != "2026" {
			t.Errorf("unexpected season: %s", r.URL.Query().Get("season"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"franchise_id":"frn-ironhorses","season":2026,"active_obligations":410,"dead_cap":33}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, resilience.CircuitBreakerConfig{})

	snapshot, err := client.CapSnapshot(context.Background(), "frn-ironhorses", 2026)
	if err != nil {
		t.Fatalf("cap snapshot: %v", err)
	}
	if snapshot.ActiveObligations != 410 || snapshot.DeadCap != 33 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if auth, _ := gotAuth.Load().(string); auth != "Bearer test-token" {
		t.Fatalf("unexpected authorization header: %q", auth)
	}
}

func TestCapSnapshot_FranchiseMismatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"franchise_id":"frn-other","season":2026,"active_obligations":1,"dead_cap":0}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, resilience.CircuitBreakerConfig{})

	if _, err := client.CapSnapshot(context.Background(), "frn-ironhorses", 2026); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestCapSnapshot_InputGuards(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "http://commissioner.example.com", resilience.CircuitBreakerConfig{})

	if _, err := client.CapSnapshot(context.Background(), "", 2026); err == nil {
		t.Fatal("expected error for empty franchise id")
	}
	if _, err := client.CapSnapshot(context.Background(), "frn-ironhorses", 0); err == nil {
		t.Fatal("expected error for invalid season")
	}
}

func TestCapSnapshot_CircuitOpensOnServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	})

	for i := 0; i < 2; i++ {
		if _, err := client.CapSnapshot(context.Background(), "frn-ironhorses", 2026+i); err == nil {
			t.Fatal("expected server error")
		}
	}

	before := calls.Load()
	if _, err := client.CapSnapshot(context.Background(), "frn-ironhorses", 2030); err == nil {
		t.Fatal("expected open-circuit rejection")
	}
	if calls.Load() != before {
		t.Fatal("open circuit must not reach the server")
	}
}

func TestCapSnapshot_ClientErrorsDoNotTrip(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 1,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	})

	for i := 0; i < 3; i++ {
		if _, err := client.CapSnapshot(context.Background(), "frn-ironhorses", 2026+i); err == nil {
			t.Fatal("expected not-found error")
		}
	}
	if got := client.breaker.State(); got != resilience.CircuitStateClosed {
		t.Fatalf("4xx responses must not open the circuit, got state %s", got)
	}
}
