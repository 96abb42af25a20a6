package obs

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheEvents     *prometheus.CounterVec
	cacheEntries    prometheus.Gauge
	authResults     *prometheus.CounterVec
	storeErrors     *prometheus.CounterVec
	rpcRequests     *prometheus.CounterVec
	circuitState    *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finance_http_requests_total",
		Help: "Total HTTP API requests",
	}, []string{"route", "status_class"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finance_http_request_duration_seconds",
		Help:    "HTTP API request duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	cacheEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finance_transaction_cache_events_total",
		Help: "Transaction cache lookups, loads and invalidations",
	}, []string{"event"})

	cacheEntries := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "finance_transaction_cache_entries",
		Help: "Entries held by the transaction cache after the last sweep",
	})

	authResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finance_auth_results_total",
		Help: "Authentication attempts by action and result",
	}, []string{"action", "result"})

	storeErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finance_store_errors_total",
		Help: "Document store failures",
	}, []string{"op"})

	rpcRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "finance_grpc_requests_total",
		Help: "Total gRPC requests",
	}, []string{"method", "code"})

	circuitState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "finance_circuit_state",
		Help: "Current circuit breaker state (1 for the active state)",
	}, []string{"circuit", "state"})

	registry.MustRegister(requests, requestDuration, cacheEvents, cacheEntries, authResults, storeErrors, rpcRequests, circuitState)

	return &Metrics{
		registry:        registry,
		requests:        requests,
		requestDuration: requestDuration,
		cacheEvents:     cacheEvents,
		cacheEntries:    cacheEntries,
		authResults:     authResults,
		storeErrors:     storeErrors,
		rpcRequests:     rpcRequests,
		circuitState:    circuitState,
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRequest(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	defer func() {
		_ = recover()
	}()

	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, statusClass(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Metrics) CacheHit() {
	m.recordCacheEvent("hit")
}

func (m *Metrics) CacheMiss() {
	m.recordCacheEvent("miss")
}

func (m *Metrics) CacheLoad(err error) {
	if err != nil {
		m.recordCacheEvent("load_error")
		return
	}
	m.recordCacheEvent("load")
}

func (m *Metrics) CacheInvalidate(all bool) {
	if all {
		m.recordCacheEvent("invalidate_all")
		return
	}
	m.recordCacheEvent("invalidate")
}

func (m *Metrics) SetCacheEntries(entries int) {
	if m == nil {
		return
	}
	defer func() {
		_ = recover()
	}()

	m.cacheEntries.Set(float64(entries))
}

func (m *Metrics) RecordAuth(action string, result string) {
	if m == nil {
		return
	}
	defer func() {
		_ = recover()
	}()

	if result == "" {
		result = "unknown"
	}
	m.authResults.WithLabelValues(action, result).Inc()
}

func (m *Metrics) RecordStoreError(op string) {
	if m == nil {
		return
	}
	defer func() {
		_ = recover()
	}()

	m.storeErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) RecordRPC(method string, code string) {
	if m == nil {
		return
	}
	defer func() {
		_ = recover()
	}()

	m.rpcRequests.WithLabelValues(method, code).Inc()
}

var circuitStates = []string{"closed", "open", "half_open"}

func (m *Metrics) SetCircuitState(circuit string, state string) {
	if m == nil {
		return
	}
	defer func() {
		_ = recover()
	}()

	for _, candidate := range circuitStates {
		value := 0.0
		if candidate == state {
			value = 1
		}
		m.circuitState.WithLabelValues(circuit, candidate).Set(value)
	}
}

func (m *Metrics) recordCacheEvent(event string) {
	if m == nil {
		return
	}
	defer func() {
		_ = recover()
	}()

	m.cacheEvents.WithLabelValues(event).Inc()
}

func statusClass(status int) string {
	if status <= 0 {
		return "unknown"
	}
	class := status / 100
	return fmt.Sprintf("%dxx", class)
}
