package limits

import (
	"net/http"
	"testing"
	"time"

	"finance_tracker/internal/config"
)

func TestFromConfigDefaults(t *testing.T) {
	got, err := FromConfig(config.LimitsConfig{})
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	if got != Default() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestFromConfigOverrides(t *testing.T) {
	body := int64(4096)
	got, err := FromConfig(config.LimitsConfig{
		MaxHeaderBytes:      1024,
		MaxBodyBytes:        &body,
		ReadHeaderTimeoutMS: 500,
		WriteTimeoutMS:      3000,
	})
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	if got.MaxHeaderBytes != 1024 || got.MaxBodyBytes != 4096 {
		t.Fatalf("unexpected sizes %+v", got)
	}
	if got.ReadHeaderTimeout != 500*time.Millisecond || got.WriteTimeout != 3*time.Second {
		t.Fatalf("unexpected timeouts %+v", got)
	}
	if got.IdleTimeout != defaultIdleTimeout {
		t.Fatalf("expected default idle timeout, got %s", got.IdleTimeout)
	}
}

func TestFromConfigRejectsInvalid(t *testing.T) {
	zero := int64(0)
	if _, err := FromConfig(config.LimitsConfig{MaxBodyBytes: &zero}); err == nil {
		t.Fatalf("expected body limit error")
	}
	if _, err := FromConfig(config.LimitsConfig{ReadHeaderTimeoutMS: -1}); err == nil {
		t.Fatalf("expected read header timeout error")
	}
	if _, err := FromConfig(config.LimitsConfig{MaxHeaderBytes: -1}); err == nil {
		t.Fatalf("expected header bytes error")
	}
}

func TestHTTPServerCarriesLimits(t *testing.T) {
	l := Default()
	srv := l.HTTPServer(http.NotFoundHandler())
	if srv.MaxHeaderBytes != l.MaxHeaderBytes || srv.ReadHeaderTimeout != l.ReadHeaderTimeout || srv.IdleTimeout != l.IdleTimeout {
		t.Fatalf("server did not receive limits: %+v", srv)
	}
}
