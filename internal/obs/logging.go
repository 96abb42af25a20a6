package obs

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggingConfig struct {
	Level       string
	Format      string
	OutputPaths []string
}

func ZapConfig(cfg LoggingConfig) (zap.Config, error) {
	zapConfig := zap.Config{
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		ErrorOutputPaths: []string{"stderr"},
	}
	zapConfig.EncoderConfig.TimeKey = "ts"
	zapConfig.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	switch strings.ToLower(cfg.Level) {
	case "debug":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "info", "":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case "warn":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.Config{}, fmt.Errorf("logging level must be debug, info (default), warn or error")
	}

	switch strings.ToLower(cfg.Format) {
	case "json", "":
		zapConfig.Encoding = "json"
	case "console":
		zapConfig.Encoding = "console"
	default:
		return zap.Config{}, fmt.Errorf("logging format must be json (default) or console")
	}

	if len(cfg.OutputPaths) == 0 {
		zapConfig.OutputPaths = []string{"stderr"}
	} else {
		zapConfig.OutputPaths = append([]string(nil), cfg.OutputPaths...)
	}
	return zapConfig, nil
}

func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	zapConfig, err := ZapConfig(cfg)
	if err != nil {
		return nil, err
	}
	return zapConfig.Build()
}

func LogAccess(ctx RequestContext) {
	zap.L().Info("access",
		zap.String("request_id", defaultString(ctx.RequestID, "none")),
		zap.String("method", ctx.Method),
		zap.String("path", ctx.Path),
		zap.String("route", defaultString(ctx.Route, "none")),
		zap.String("user_id", defaultString(ctx.UserID, "anonymous")),
		zap.Int("status", ctx.Status),
		zap.Int64("duration_ms", ctx.Duration.Milliseconds()),
		zap.Int64("bytes_in", ctx.BytesIn),
		zap.Int64("bytes_out", ctx.BytesOut),
		zap.String("error_category", defaultString(ctx.ErrorCategory, "none")),
		zap.String("user_agent", ctx.UserAgent),
		zap.String("remote_addr", ctx.RemoteAddr),
	)
}

func defaultString(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func RedactHeaderValue(name, value string) string {
	if name == "" {
		return value
	}
	if isSensitiveHeader(name) {
		return "[redacted]"
	}
	return value
}

func isSensitiveHeader(name string) bool {
	switch strings.ToLower(name) {
	case "authorization", "cookie", "set-cookie", "x-api-key":
		return true
	default:
		return false
	}
}
