package testutil

import (
	"testing"
	"time"
)

func Eventually(t *testing.T, timeout time.Duration, interval time.Duration, fn func() error) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	lastErr := fn()
	for lastErr != nil && time.Now().Before(deadline) {
		time.Sleep(interval)
		lastErr = fn()
	}
	if lastErr != nil {
		t.Fatalf("condition not met within %s: %v", timeout, lastErr)
	}
}
