package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinQuota(t *testing.T) {
	l := New(3)
	for i := 0; i < 3; i++ {
		if !l.Allow("device-a") {
			t.Fatalf("expected request %d to be allowed", i)
		}
	}
	if l.Allow("device-a") {
		t.Error("expected 4th request in the same window to be rejected")
	}
}

func TestAllowIsPerDevice(t *testing.T) {
	l := New(1)
	if !l.Allow("device-a") {
		t.Fatal("expected first request from device-a to be allowed")
	}
	if !l.Allow("device-b") {
		t.Error("expected device-b to have its own independent quota")
	}
}

func TestZeroOrNegativeMaxDisablesLimiting(t *testing.T) {
	l := New(0)
	for i := 0; i < 100; i++ {
		if !l.Allow("device-a") {
			t.Fatalf("expected limiting disabled at 0, request %d rejected", i)
		}
	}
}

func TestCleanupRemovesStaleWindowsOnly(t *testing.T) {
	l := New(1)
	l.Allow("device-a")
	l.windows["device-a"].start = time.Now().Add(-10 * time.Minute)
	l.Allow("device-b") // fresh window

	l.Cleanup()

	l.mu.Lock()
	_, staleStillPresent := l.windows["device-a"]
	_, freshStillPresent := l.windows["device-b"]
	l.mu.Unlock()

	if staleStillPresent {
		t.Error("expected stale window to be removed by cleanup")
	}
	if !freshStillPresent {
		t.Error("expected fresh window to survive cleanup")
	}
}

func TestCleanupSkipsWhenAlreadyHeld(t *testing.T) {
	l := New(1)
	l.cleanupMu.Lock()
	defer l.cleanupMu.Unlock()

	done := make(chan struct{})
	go func() {
		l.Cleanup() // must return immediately rather than blocking
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Cleanup blocked instead of skipping when the cleanup lock was held")
	}
}
