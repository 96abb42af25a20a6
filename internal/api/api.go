package api

import (
	"errors"
	"net/http"

	"finance_tracker/internal/identity"
	"finance_tracker/internal/obs"
	"finance_tracker/internal/tracker"
)

type HandlerConfig struct {
	Tracker        *tracker.Service
	Identity       *identity.Provider
	Metrics        *obs.Metrics
	RateLimiter    *RateLimiter
	MaxBodyBytes   int64
	MetricsEnabled bool
	MetricsToken   string
	SecureCookies  bool
}

type handler struct {
	tracker       *tracker.Service
	identity      *identity.Provider
	metrics       *obs.Metrics
	rateLimiter   *RateLimiter
	maxBodyBytes  int64
	secureCookies bool
}

func NewHandler(cfg HandlerConfig) (http.Handler, error) {
	if cfg.Tracker == nil {
		return nil, errors.New("tracker service is required")
	}
	if cfg.Identity == nil {
		return nil, errors.New("identity provider is required")
	}
	h := &handler{
		tracker:       cfg.Tracker,
		identity:      cfg.Identity,
		metrics:       cfg.Metrics,
		rateLimiter:   cfg.RateLimiter,
		maxBodyBytes:  cfg.MaxBodyBytes,
		secureCookies: cfg.SecureCookies,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/signup", h.limited(h.handleSignUp))
	mux.HandleFunc("POST /auth/signin", h.limited(h.handleSignIn))
	mux.HandleFunc("POST /auth/signout", h.limited(h.handleSignOut))
	mux.HandleFunc("POST /auth/reset", h.limited(h.handleResetRequest))
	mux.HandleFunc("POST /auth/reset/confirm", h.limited(h.handleResetConfirm))
	mux.HandleFunc("GET /auth/google/login", h.limited(h.handleGoogleLogin))
	mux.HandleFunc("GET /auth/google/callback", h.limited(h.handleGoogleCallback))
	mux.HandleFunc("GET /auth/me", h.authed(h.handleMe))

	mux.HandleFunc("GET /api/transactions", h.authed(h.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", h.authed(h.handleCreateTransaction))
	mux.HandleFunc("POST /api/transactions/refresh", h.authed(h.handleRefresh))
	mux.HandleFunc("GET /api/transactions/{id}", h.authed(h.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", h.authed(h.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", h.authed(h.handleDeleteTransaction))
	mux.HandleFunc("GET /api/dashboard", h.authed(h.handleDashboard))
	mux.HandleFunc("GET /api/analytics", h.authed(h.handleAnalytics))
	mux.HandleFunc("GET /api/categories", h.authed(h.handleListCategories))
	mux.HandleFunc("POST /api/categories", h.authed(h.handleCreateCategory))
	mux.HandleFunc("PUT /api/categories/{id}", h.authed(h.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", h.authed(h.handleDeleteCategory))
	mux.HandleFunc("GET /api/settings", h.authed(h.handleGetSettings))
	mux.HandleFunc("PUT /api/settings", h.authed(h.handleUpdateSettings))
	mux.HandleFunc("GET /api/export", h.authed(h.handleExport))
	mux.HandleFunc("DELETE /api/data", h.authed(h.handleDeleteAll))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]bool{"ok": true})
	})
	if cfg.MetricsEnabled && cfg.Metrics != nil {
		mux.Handle("GET /metrics", metricsGuard(cfg.MetricsToken, cfg.Metrics.Handler()))
	}
	return h.instrument(mux), nil
}
