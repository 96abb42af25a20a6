package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	EnvPrefix         = "FINANCE"
	DefaultConfigName = ".finance-tracker"
	DefaultSecretEnv  = "FINANCE_JWT_SECRET"
)

type Config struct {
	ListenAddr string          `json:"listen_addr" yaml:"listen_addr" mapstructure:"listen_addr"`
	GRPCAddr   string          `json:"grpc_addr,omitempty" yaml:"grpc_addr,omitempty" mapstructure:"grpc_addr"`
	Cache      CacheConfig     `json:"cache" yaml:"cache" mapstructure:"cache"`
	Breaker    *BreakerConfig  `json:"store_breaker,omitempty" yaml:"store_breaker,omitempty" mapstructure:"store_breaker"`
	Auth       AuthConfig      `json:"auth" yaml:"auth" mapstructure:"auth"`
	Google     *GoogleConfig   `json:"google,omitempty" yaml:"google,omitempty" mapstructure:"google"`
	Logging    LoggingConfig   `json:"logging" yaml:"logging" mapstructure:"logging"`
	Limits     LimitsConfig    `json:"limits" yaml:"limits" mapstructure:"limits"`
	Shutdown   ShutdownConfig  `json:"shutdown" yaml:"shutdown" mapstructure:"shutdown"`
	Metrics    *MetricsConfig  `json:"metrics,omitempty" yaml:"metrics,omitempty" mapstructure:"metrics"`
	RateLimit  RateLimitConfig `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`
	Defaults   DefaultsConfig  `json:"defaults" yaml:"defaults" mapstructure:"defaults"`
}

type CacheConfig struct {
	TTLMS           int   `json:"ttl_ms" yaml:"ttl_ms" mapstructure:"ttl_ms"`
	SweepIntervalMS int   `json:"sweep_interval_ms" yaml:"sweep_interval_ms" mapstructure:"sweep_interval_ms"`
	Coalesce        *bool `json:"coalesce,omitempty" yaml:"coalesce,omitempty" mapstructure:"coalesce"`
}

type BreakerConfig struct {
	Enabled            bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	FailureRatePercent int  `json:"failure_rate_percent" yaml:"failure_rate_percent" mapstructure:"failure_rate_percent"`
	MinimumRequests    int  `json:"minimum_requests" yaml:"minimum_requests" mapstructure:"minimum_requests"`
	WindowMS           int  `json:"window_ms" yaml:"window_ms" mapstructure:"window_ms"`
	OpenMS             int  `json:"open_ms" yaml:"open_ms" mapstructure:"open_ms"`
	HalfOpenTrials     int  `json:"half_open_trials,omitempty" yaml:"half_open_trials,omitempty" mapstructure:"half_open_trials"`
}

type AuthConfig struct {
	JWTSecretEnv   string `json:"jwt_secret_env" yaml:"jwt_secret_env" mapstructure:"jwt_secret_env"`
	Issuer         string `json:"issuer,omitempty" yaml:"issuer,omitempty" mapstructure:"issuer"`
	SessionTTLMS   int    `json:"session_ttl_ms" yaml:"session_ttl_ms" mapstructure:"session_ttl_ms"`
	ResetCodeTTLMS int    `json:"reset_code_ttl_ms" yaml:"reset_code_ttl_ms" mapstructure:"reset_code_ttl_ms"`
	BcryptCost     int    `json:"bcrypt_cost,omitempty" yaml:"bcrypt_cost,omitempty" mapstructure:"bcrypt_cost"`
}

type GoogleConfig struct {
	ClientID        string `json:"client_id" yaml:"client_id" mapstructure:"client_id"`
	ClientSecretEnv string `json:"client_secret_env" yaml:"client_secret_env" mapstructure:"client_secret_env"`
	RedirectURL     string `json:"redirect_url" yaml:"redirect_url" mapstructure:"redirect_url"`
	AuthURL         string `json:"auth_url,omitempty" yaml:"auth_url,omitempty" mapstructure:"auth_url"`
	TokenURL        string `json:"token_url,omitempty" yaml:"token_url,omitempty" mapstructure:"token_url"`
	UserInfoURL     string `json:"userinfo_url,omitempty" yaml:"userinfo_url,omitempty" mapstructure:"userinfo_url"`
}

type LoggingConfig struct {
	Level       string   `json:"level" yaml:"level" mapstructure:"level"`
	Format      string   `json:"format" yaml:"format" mapstructure:"format"`
	OutputPaths []string `json:"output_paths,omitempty" yaml:"output_paths,omitempty" mapstructure:"output_paths"`
}

type LimitsConfig struct {
	MaxHeaderBytes      int    `json:"max_header_bytes,omitempty" yaml:"max_header_bytes,omitempty" mapstructure:"max_header_bytes"`
	MaxBodyBytes        *int64 `json:"max_body_bytes,omitempty" yaml:"max_body_bytes,omitempty" mapstructure:"max_body_bytes"`
	ReadHeaderTimeoutMS int    `json:"read_header_timeout_ms,omitempty" yaml:"read_header_timeout_ms,omitempty" mapstructure:"read_header_timeout_ms"`
	ReadTimeoutMS       int    `json:"read_timeout_ms,omitempty" yaml:"read_timeout_ms,omitempty" mapstructure:"read_timeout_ms"`
	WriteTimeoutMS      int    `json:"write_timeout_ms,omitempty" yaml:"write_timeout_ms,omitempty" mapstructure:"write_timeout_ms"`
	IdleTimeoutMS       int    `json:"idle_timeout_ms,omitempty" yaml:"idle_timeout_ms,omitempty" mapstructure:"idle_timeout_ms"`
}

type ShutdownConfig struct {
	DrainMS           int `json:"drain_ms,omitempty" yaml:"drain_ms,omitempty" mapstructure:"drain_ms"`
	GracefulTimeoutMS int `json:"graceful_timeout_ms,omitempty" yaml:"graceful_timeout_ms,omitempty" mapstructure:"graceful_timeout_ms"`
	ForceCloseMS      int `json:"force_close_ms,omitempty" yaml:"force_close_ms,omitempty" mapstructure:"force_close_ms"`
}

type MetricsConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	RequireToken bool   `json:"require_token,omitempty" yaml:"require_token,omitempty" mapstructure:"require_token"`
	TokenEnv     string `json:"token_env,omitempty" yaml:"token_env,omitempty" mapstructure:"token_env"`
}

type RateLimitConfig struct {
	RPS             int `json:"rps,omitempty" yaml:"rps,omitempty" mapstructure:"rps"`
	Burst           int `json:"burst,omitempty" yaml:"burst,omitempty" mapstructure:"burst"`
	MaxFailures     int `json:"max_failures,omitempty" yaml:"max_failures,omitempty" mapstructure:"max_failures"`
	BlockDurationMS int `json:"block_duration_ms,omitempty" yaml:"block_duration_ms,omitempty" mapstructure:"block_duration_ms"`
}

type DefaultsConfig struct {
	Currency string `json:"currency" yaml:"currency" mapstructure:"currency"`
}

func Default() *Config {
	return &Config{
		ListenAddr: "127.0.0.1:8080",
		Cache:      CacheConfig{TTLMS: 30000},
		Auth: AuthConfig{
			JWTSecretEnv:   DefaultSecretEnv,
			SessionTTLMS:   24 * 60 * 60 * 1000,
			ResetCodeTTLMS: 10 * 60 * 1000,
		},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Metrics:  &MetricsConfig{Enabled: true},
		Defaults: DefaultsConfig{Currency: "USD"},
	}
}

func Example() *Config {
	cfg := Default()
	cfg.GRPCAddr = "127.0.0.1:9090"
	cfg.Cache.SweepIntervalMS = 60000
	maxBody := int64(1 << 20)
	cfg.Limits = LimitsConfig{MaxBodyBytes: &maxBody, ReadHeaderTimeoutMS: 2000}
	cfg.Shutdown = ShutdownConfig{DrainMS: 500, GracefulTimeoutMS: 5000}
	cfg.RateLimit = RateLimitConfig{RPS: 5, Burst: 10, MaxFailures: 20, BlockDurationMS: 600000}
	cfg.Breaker = &BreakerConfig{Enabled: true, FailureRatePercent: 50, MinimumRequests: 10, WindowMS: 10000, OpenMS: 5000}
	cfg.Google = &GoogleConfig{
		ClientID:        "your-client-id.apps.googleusercontent.com",
		ClientSecretEnv: "FINANCE_GOOGLE_CLIENT_SECRET",
		RedirectURL:     "http://127.0.0.1:8080/auth/google/callback",
	}
	return cfg
}

func ParseJSON(data []byte) (*Config, error) {
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ParseYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) YAML() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return ""
	}
	return string(data)
}

func (c *Config) JSON() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

func Load(path string) (*Config, string, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if path == "" {
		home, err := homedir.Dir()
		if err == nil {
			candidate := filepath.Join(home, DefaultConfigName+".yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				path = candidate
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, path, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, path, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{Enabled: v.GetBool("metrics.enabled")}
	}
	return cfg, path, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("listen_addr", cfg.ListenAddr)
	v.SetDefault("grpc_addr", cfg.GRPCAddr)
	v.SetDefault("cache.ttl_ms", cfg.Cache.TTLMS)
	v.SetDefault("cache.sweep_interval_ms", cfg.Cache.SweepIntervalMS)
	v.SetDefault("auth.jwt_secret_env", cfg.Auth.JWTSecretEnv)
	v.SetDefault("auth.issuer", cfg.Auth.Issuer)
	v.SetDefault("auth.session_ttl_ms", cfg.Auth.SessionTTLMS)
	v.SetDefault("auth.reset_code_ttl_ms", cfg.Auth.ResetCodeTTLMS)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("metrics.enabled", cfg.Metrics != nil && cfg.Metrics.Enabled)
	v.SetDefault("defaults.currency", cfg.Defaults.Currency)
}

func Secret(envName string) (string, error) {
	envName = strings.TrimSpace(envName)
	if envName == "" {
		return "", errors.New("secret env name is empty")
	}
	value := strings.TrimSpace(os.Getenv(envName))
	if value == "" {
		return "", fmt.Errorf("secret missing in %s", envName)
	}
	return value, nil
}

func (c *Config) CoalesceLoads() bool {
	if c == nil || c.Cache.Coalesce == nil {
		return true
	}
	return *c.Cache.Coalesce
}
