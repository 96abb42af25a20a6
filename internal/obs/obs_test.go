package obs

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	server := httptest.NewServer(m.Handler())
	defer server.Close()
	resp, err := server.Client().Get(server.URL)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestMetricsEndpointReportsEvents(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest("GET /api/transactions", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest("", http.StatusNotFound, time.Millisecond)
	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()
	m.CacheLoad(nil)
	m.CacheLoad(errors.New("boom"))
	m.CacheInvalidate(false)
	m.CacheInvalidate(true)
	m.SetCacheEntries(3)
	m.RecordAuth("signin", "ok")
	m.RecordStoreError("list_transactions")
	m.RecordRPC("ListTransactions", "OK")

	text := scrape(t, m)
	for _, want := range []string{
		`finance_http_requests_total{route="GET /api/transactions",status_class="2xx"} 1`,
		`finance_http_requests_total{route="unmatched",status_class="4xx"} 1`,
		`finance_transaction_cache_events_total{event="hit"} 2`,
		`finance_transaction_cache_events_total{event="miss"} 1`,
		`finance_transaction_cache_events_total{event="load"} 1`,
		`finance_transaction_cache_events_total{event="load_error"} 1`,
		`finance_transaction_cache_events_total{event="invalidate"} 1`,
		`finance_transaction_cache_events_total{event="invalidate_all"} 1`,
		`finance_transaction_cache_entries 3`,
		`finance_auth_results_total{action="signin",result="ok"} 1`,
		`finance_store_errors_total{op="list_transactions"} 1`,
		`finance_grpc_requests_total{code="OK",method="ListTransactions"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("r", 200, time.Millisecond)
	m.CacheHit()
	m.CacheLoad(nil)
	m.RecordAuth("signin", "ok")
	m.RecordStoreError("op")
	m.SetCacheEntries(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics handler, got %d", rec.Code)
	}
}

func TestZapConfig(t *testing.T) {
	cfg, err := ZapConfig(LoggingConfig{Level: "debug", Format: "console", OutputPaths: []string{"stdout"}})
	if err != nil {
		t.Fatalf("zap config: %v", err)
	}
	if cfg.Encoding != "console" || cfg.Level.Level() != zapcore.DebugLevel || cfg.OutputPaths[0] != "stdout" {
		t.Fatalf("unexpected zap config %+v", cfg)
	}

	defaults, err := ZapConfig(LoggingConfig{})
	if err != nil {
		t.Fatalf("zap defaults: %v", err)
	}
	if defaults.Encoding != "json" || defaults.Level.Level() != zapcore.InfoLevel || defaults.OutputPaths[0] != "stderr" {
		t.Fatalf("unexpected defaults %+v", defaults)
	}

	if _, err := ZapConfig(LoggingConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected invalid level error")
	}
	if _, err := ZapConfig(LoggingConfig{Format: "xml"}); err == nil {
		t.Fatalf("expected invalid format error")
	}
}

func TestLogAccessFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	LogAccess(RequestContext{
		Method:   http.MethodGet,
		Path:     "/api/dashboard",
		Route:    "GET /api/dashboard",
		UserID:   "alice",
		Status:   http.StatusOK,
		Duration: 15 * time.Millisecond,
	})

	entries := logs.FilterMessage("access").All()
	if len(entries) != 1 {
		t.Fatalf("expected one access line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "none" || fields["user_id"] != "alice" || fields["status"] != int64(http.StatusOK) {
		t.Fatalf("unexpected access fields %v", fields)
	}
	if fields["duration_ms"] != int64(15) {
		t.Fatalf("unexpected duration %v", fields["duration_ms"])
	}
}

func TestRedactHeaderValue(t *testing.T) {
	if got := RedactHeaderValue("Authorization", "Bearer abc"); got != "[redacted]" {
		t.Fatalf("expected redaction, got %q", got)
	}
	if got := RedactHeaderValue("Accept", "application/json"); got != "application/json" {
		t.Fatalf("unexpected value %q", got)
	}
}
