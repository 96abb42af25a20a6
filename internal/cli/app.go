package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"finance_tracker/internal/api"
	"finance_tracker/internal/breaker"
	"finance_tracker/internal/cache"
	"finance_tracker/internal/config"
	"finance_tracker/internal/identity"
	"finance_tracker/internal/limits"
	"finance_tracker/internal/obs"
	"finance_tracker/internal/rpc"
	"finance_tracker/internal/runtime"
	"finance_tracker/internal/server"
	"finance_tracker/internal/store"
	"finance_tracker/internal/tracker"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

type App struct {
	Config   *config.Config
	Metrics  *obs.Metrics
	Cache    *cache.TransactionCache
	Tracker  *tracker.Service
	Identity *identity.Provider
	Handler  http.Handler
	GRPC     *grpc.Server
	Janitor  *cache.Janitor
	Limits   limits.Limits
	Shutdown runtime.ShutdownConfig
}

func Build(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	secretEnv := cfg.Auth.JWTSecretEnv
	if strings.TrimSpace(secretEnv) == "" {
		secretEnv = config.DefaultSecretEnv
	}
	secret, err := config.Secret(secretEnv)
	if err != nil {
		return nil, fmt.Errorf("session secret: %w", err)
	}
	lim, err := limits.FromConfig(cfg.Limits)
	if err != nil {
		return nil, fmt.Errorf("limits: %w", err)
	}
	shutdown, err := runtime.ShutdownFromConfig(cfg.Shutdown)
	if err != nil {
		return nil, fmt.Errorf("shutdown: %w", err)
	}

	metrics := obs.NewMetrics()
	txCache := cache.NewTransactionCache(millis(cfg.Cache.TTLMS))
	docs := store.NewMemory()
	readThrough := cache.NewCache(txCache, cache.Guard(docs, storeBreaker(cfg.Breaker, metrics)), metrics)
	readThrough.Coalesce = cfg.CoalesceLoads()

	svc, err := tracker.NewService(tracker.Options{
		Store:           docs,
		Cache:           readThrough,
		Metrics:         metrics,
		DefaultCurrency: cfg.Defaults.Currency,
	})
	if err != nil {
		return nil, err
	}

	provider, err := identity.NewProvider(identity.Config{
		Secret:       []byte(secret),
		Issuer:       cfg.Auth.Issuer,
		SessionTTL:   millis(cfg.Auth.SessionTTLMS),
		ResetCodeTTL: millis(cfg.Auth.ResetCodeTTLMS),
		BcryptCost:   cfg.Auth.BcryptCost,
	})
	if err != nil {
		return nil, err
	}
	provider.OnSignUp(svc.OnSignUp)
	if cfg.Google != nil {
		if err := provider.EnableGoogle(identity.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: strings.TrimSpace(os.Getenv(cfg.Google.ClientSecretEnv)),
			RedirectURL:  cfg.Google.RedirectURL,
			AuthURL:      cfg.Google.AuthURL,
			TokenURL:     cfg.Google.TokenURL,
			UserInfoURL:  cfg.Google.UserInfoURL,
		}); err != nil {
			return nil, fmt.Errorf("google sign-in: %w", err)
		}
	}

	handler, err := api.NewHandler(api.HandlerConfig{
		Tracker:        svc,
		Identity:       provider,
		Metrics:        metrics,
		RateLimiter:    api.NewRateLimiter(cfg.RateLimit),
		MaxBodyBytes:   lim.MaxBodyBytes,
		MetricsEnabled: cfg.Metrics != nil && cfg.Metrics.Enabled,
		MetricsToken:   config.MetricsToken(cfg),
		SecureCookies:  cfg.Google != nil && strings.HasPrefix(cfg.Google.RedirectURL, "https://"),
	})
	if err != nil {
		return nil, err
	}

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		grpcSrv, err = rpc.NewServer(svc, provider, metrics)
		if err != nil {
			return nil, err
		}
	}

	return &App{
		Config:   cfg,
		Metrics:  metrics,
		Cache:    txCache,
		Tracker:  svc,
		Identity: provider,
		Handler:  handler,
		GRPC:     grpcSrv,
		Janitor:  cache.NewJanitor(txCache, millis(cfg.Cache.SweepIntervalMS), metrics.SetCacheEntries),
		Limits:   lim,
		Shutdown: shutdown,
	}, nil
}

func (a *App) Start() (*server.Server, error) {
	a.Janitor.Start()
	srv, err := server.StartServers(a.Handler, a.GRPC, a.Config.ListenAddr, a.Config.GRPCAddr, server.Options{
		Limits:   a.Limits,
		Shutdown: a.Shutdown,
		Inflight: runtime.NewInflightTracker(),
		Stoppers: []server.Stopper{a.Janitor},
	})
	if err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Shutdown.GracefulTimeout)
		defer cancel()
		_ = a.Janitor.Stop(ctx)
		return nil, err
	}
	zap.L().Info("finance tracker started",
		zap.Duration("cache_ttl", a.Cache.TTL()),
		zap.Bool("grpc", a.GRPC != nil),
		zap.Bool("google", a.Identity.GoogleEnabled()),
	)
	return srv, nil
}

func storeBreaker(cfg *config.BreakerConfig, metrics *obs.Metrics) *breaker.Breaker {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	metrics.SetCircuitState("store", breaker.StateClosed.String())
	return breaker.New("store", breaker.Config{
		Enabled:                     true,
		FailureRateThresholdPercent: cfg.FailureRatePercent,
		MinimumRequests:             cfg.MinimumRequests,
		EvaluationWindow:            millis(cfg.WindowMS),
		OpenDuration:                millis(cfg.OpenMS),
		HalfOpenMaxTrials:           cfg.HalfOpenTrials,
	}, breaker.OnStateChange(func(name string, state breaker.State) {
		metrics.SetCircuitState(name, state.String())
	}))
}

func millis(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
