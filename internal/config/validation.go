package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"finance_tracker/internal/ledger"
)

const (
	defaultMetricsTokenEnv = "FINANCE_METRICS_TOKEN"
	minSessionTTLMS        = 60 * 1000
)

func Validate(cfg *Config) ([]string, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	warnings := []string{}
	if strings.TrimSpace(cfg.ListenAddr) == "" && strings.TrimSpace(cfg.GRPCAddr) == "" {
		return warnings, errors.New("listen_addr or grpc_addr is required")
	}
	if err := validateCache(cfg, &warnings); err != nil {
		return warnings, err
	}
	if err := validateBreaker(cfg.Breaker); err != nil {
		return warnings, err
	}
	if err := validateAuth(cfg, &warnings); err != nil {
		return warnings, err
	}
	if err := validateGoogle(cfg, &warnings); err != nil {
		return warnings, err
	}
	if err := validateLogging(cfg); err != nil {
		return warnings, err
	}
	if err := validateLimits(cfg); err != nil {
		return warnings, err
	}
	if err := validateShutdown(cfg); err != nil {
		return warnings, err
	}
	if err := validateMetrics(cfg); err != nil {
		return warnings, err
	}
	if err := validateRateLimit(cfg); err != nil {
		return warnings, err
	}
	if _, ok := ledger.NormalizeCurrency(cfg.Defaults.Currency); !ok {
		return warnings, fmt.Errorf("defaults.currency %q is not a 3-letter code", cfg.Defaults.Currency)
	}
	return warnings, nil
}

func ValidateMetricsToken(cfg *Config) error {
	return validateMetrics(cfg)
}

func validateCache(cfg *Config, warnings *[]string) error {
	if cfg.Cache.TTLMS < 0 {
		return errors.New("cache.ttl_ms must be >= 0")
	}
	if cfg.Cache.TTLMS == 0 {
		*warnings = append(*warnings, "cache.ttl_ms unset; using 30000")
	}
	if cfg.Cache.SweepIntervalMS < 0 {
		return errors.New("cache.sweep_interval_ms must be >= 0")
	}
	if cfg.Cache.SweepIntervalMS > 0 && cfg.Cache.TTLMS > 0 && cfg.Cache.SweepIntervalMS < cfg.Cache.TTLMS {
		*warnings = append(*warnings, "cache.sweep_interval_ms is shorter than cache.ttl_ms")
	}
	return nil
}

func validateBreaker(b *BreakerConfig) error {
	if b == nil || !b.Enabled {
		return nil
	}
	if b.FailureRatePercent <= 0 || b.FailureRatePercent > 100 {
		return errors.New("store_breaker.failure_rate_percent must be between 1 and 100")
	}
	if b.MinimumRequests < 0 || b.WindowMS < 0 || b.OpenMS < 0 || b.HalfOpenTrials < 0 {
		return errors.New("store_breaker values must be non-negative")
	}
	return nil
}

func validateAuth(cfg *Config, warnings *[]string) error {
	env := strings.TrimSpace(cfg.Auth.JWTSecretEnv)
	if env == "" {
		env = DefaultSecretEnv
	}
	if _, err := Secret(env); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if cfg.Auth.SessionTTLMS < 0 {
		return errors.New("auth.session_ttl_ms must be >= 0")
	}
	if cfg.Auth.SessionTTLMS > 0 && cfg.Auth.SessionTTLMS < minSessionTTLMS {
		*warnings = append(*warnings, "auth.session_ttl_ms is under one minute")
	}
	if cfg.Auth.ResetCodeTTLMS < 0 {
		return errors.New("auth.reset_code_ttl_ms must be >= 0")
	}
	if cfg.Auth.BcryptCost != 0 && (cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31) {
		return errors.New("auth.bcrypt_cost must be between 4 and 31")
	}
	return nil
}

func validateGoogle(cfg *Config, warnings *[]string) error {
	if cfg.Google == nil {
		return nil
	}
	if strings.TrimSpace(cfg.Google.ClientID) == "" {
		return errors.New("google.client_id is required")
	}
	if strings.TrimSpace(cfg.Google.RedirectURL) == "" {
		return errors.New("google.redirect_url is required")
	}
	if env := strings.TrimSpace(cfg.Google.ClientSecretEnv); env == "" || os.Getenv(env) == "" {
		*warnings = append(*warnings, "google client secret missing; token exchange will fail")
	}
	return nil
}

func validateLogging(cfg *Config) error {
	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn or error", cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", cfg.Logging.Format)
	}
	return nil
}

func validateLimits(cfg *Config) error {
	if cfg.Limits.MaxBodyBytes != nil && *cfg.Limits.MaxBodyBytes <= 0 {
		return errors.New("limits.max_body_bytes must be > 0")
	}
	if cfg.Limits.ReadHeaderTimeoutMS < 0 {
		return errors.New("limits.read_header_timeout_ms must be > 0")
	}
	return nil
}

func validateShutdown(cfg *Config) error {
	if cfg.Shutdown.DrainMS < 0 || cfg.Shutdown.GracefulTimeoutMS < 0 || cfg.Shutdown.ForceCloseMS < 0 {
		return errors.New("shutdown durations must be non-negative")
	}
	return nil
}

func validateMetrics(cfg *Config) error {
	if cfg == nil || cfg.Metrics == nil || !cfg.Metrics.RequireToken {
		return nil
	}
	env := strings.TrimSpace(cfg.Metrics.TokenEnv)
	if env == "" {
		env = defaultMetricsTokenEnv
	}
	if strings.TrimSpace(os.Getenv(env)) == "" {
		return fmt.Errorf("metrics token missing in %s", env)
	}
	return nil
}

func validateRateLimit(cfg *Config) error {
	rl := cfg.RateLimit
	if rl.RPS < 0 || rl.Burst < 0 || rl.MaxFailures < 0 || rl.BlockDurationMS < 0 {
		return errors.New("rate_limit values must be non-negative")
	}
	return nil
}

func MetricsToken(cfg *Config) string {
	if cfg == nil || cfg.Metrics == nil || !cfg.Metrics.RequireToken {
		return ""
	}
	env := strings.TrimSpace(cfg.Metrics.TokenEnv)
	if env == "" {
		env = defaultMetricsTokenEnv
	}
	return strings.TrimSpace(os.Getenv(env))
}
