package runtime

import (
	"fmt"
	"time"

	"finance_tracker/internal/config"
)

const (
	defaultDrain           = 250 * time.Millisecond
	defaultGracefulTimeout = 5 * time.Second
	defaultForceClose      = time.Second
)

type ShutdownConfig struct {
	Drain           time.Duration
	GracefulTimeout time.Duration
	ForceClose      time.Duration
}

func ShutdownFromConfig(cfg config.ShutdownConfig) (ShutdownConfig, error) {
	shutdown := DefaultShutdownConfig()
	var err error
	if shutdown.Drain, err = millis("drain_ms", cfg.DrainMS, shutdown.Drain); err != nil {
		return ShutdownConfig{}, err
	}
	if shutdown.GracefulTimeout, err = millis("graceful_timeout_ms", cfg.GracefulTimeoutMS, shutdown.GracefulTimeout); err != nil {
		return ShutdownConfig{}, err
	}
	if shutdown.ForceClose, err = millis("force_close_ms", cfg.ForceCloseMS, shutdown.ForceClose); err != nil {
		return ShutdownConfig{}, err
	}
	return shutdown, nil
}

func DefaultShutdownConfig() ShutdownConfig {
	return ShutdownConfig{
		Drain:           defaultDrain,
		GracefulTimeout: defaultGracefulTimeout,
		ForceClose:      defaultForceClose,
	}
}

func ApplyShutdownDefaults(cfg ShutdownConfig) ShutdownConfig {
	defaults := DefaultShutdownConfig()
	if cfg.Drain < 0 {
		cfg.Drain = 0
	}
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = defaults.GracefulTimeout
	}
	if cfg.ForceClose <= 0 {
		cfg.ForceClose = defaults.ForceClose
	}
	return cfg
}

func millis(name string, value int, fallback time.Duration) (time.Duration, error) {
	switch {
	case value < 0:
		return 0, fmt.Errorf("%s must be non-negative", name)
	case value == 0:
		return fallback, nil
	default:
		return time.Duration(value) * time.Millisecond, nil
	}
}
