package server

import (
	"testing"
	"time"

	"github.com/lawnchairsociety/tilegen/internal/config"
)

func TestRejectLimiter_Basic(t *testing.T) {
	rl := NewRejectLimiter(config.RateLimitConfig{MaxRejected: 3, LockoutSeconds: 1, MaxLockoutSeconds: 10})
	defer rl.Stop()

	ip := "192.168.1.1"

	for i := 1; i <= 2; i++ {
		if locked, _ := rl.RecordRejected(ip); locked {
			t.Errorf("reject %d should not trigger lockout", i)
		}
	}

	locked, d := rl.RecordRejected(ip)
	if !locked {
		t.Fatal("third reject should trigger lockout")
	}
	if d < time.Second {
		t.Errorf("lockout should be at least 1 second, got %v", d)
	}
	if isLocked, _ := rl.IsLocked(ip); !isLocked {
		t.Error("IP should be locked")
	}

	// Further rejects while locked keep the same deadline
	if locked, again := rl.RecordRejected(ip); !locked || again > d {
		t.Errorf("reject while locked = %v, %v", locked, again)
	}
}

func TestRejectLimiter_AcceptClears(t *testing.T) {
	rl := NewRejectLimiter(config.RateLimitConfig{MaxRejected: 3, LockoutSeconds: 1, MaxLockoutSeconds: 10})
	defer rl.Stop()

	ip := "192.168.1.1"
	rl.RecordRejected(ip)
	rl.RecordRejected(ip)
	if n := rl.Rejected(ip); n != 2 {
		t.Errorf("expected 2 rejects, got %d", n)
	}

	rl.RecordAccepted(ip)
	if n := rl.Rejected(ip); n != 0 {
		t.Errorf("expected 0 rejects after accept, got %d", n)
	}
	if locked, _ := rl.RecordRejected(ip); locked {
		t.Error("first reject after accept should not trigger lockout")
	}
}

func TestRejectLimiter_AcceptKeepsBackoff(t *testing.T) {
	rl := NewRejectLimiter(config.RateLimitConfig{MaxRejected: 1, LockoutSeconds: 1, MaxLockoutSeconds: 10})
	defer rl.Stop()

	ip := "192.168.1.1"
	locked, d := rl.RecordRejected(ip)
	if !locked || d != time.Second {
		t.Fatalf("first lockout = %v, %v; want true, 1s", locked, d)
	}

	// Let the lockout lapse, then slip in one accepted request
	rl.mu.Lock()
	rl.clients[ip].lockedUntil = time.Now().Add(-time.Millisecond)
	rl.mu.Unlock()
	rl.RecordAccepted(ip)

	locked, d = rl.RecordRejected(ip)
	if !locked || d != 2*time.Second {
		t.Errorf("second lockout = %v, %v; want true, 2s", locked, d)
	}
}

func TestRejectLimiter_BackoffIsCapped(t *testing.T) {
	rl := NewRejectLimiter(config.RateLimitConfig{MaxRejected: 1, LockoutSeconds: 1, MaxLockoutSeconds: 3})
	defer rl.Stop()

	ip := "192.168.1.1"
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}

	for i, w := range want {
		// Expire the previous lockout without sleeping
		rl.mu.Lock()
		if info, ok := rl.clients[ip]; ok {
			info.lockedUntil = time.Now().Add(-time.Millisecond)
		}
		rl.mu.Unlock()

		_, d := rl.RecordRejected(ip)
		if d != w {
			t.Errorf("lockout %d = %v, want %v", i+1, d, w)
		}
	}
}

func TestRejectLimiter_MultipleIPs(t *testing.T) {
	rl := NewRejectLimiter(config.RateLimitConfig{MaxRejected: 2, LockoutSeconds: 1, MaxLockoutSeconds: 10})
	defer rl.Stop()

	rl.RecordRejected("192.168.1.1")
	rl.RecordRejected("192.168.1.1")

	if locked, _ := rl.IsLocked("192.168.1.1"); !locked {
		t.Error("IP1 should be locked")
	}
	if locked, _ := rl.IsLocked("192.168.1.2"); locked {
		t.Error("IP2 should not be locked")
	}
	if locked, _ := rl.RecordRejected("192.168.1.2"); locked {
		t.Error("first reject for IP2 should not trigger lockout")
	}
}

func TestRejectLimiter_Cleanup(t *testing.T) {
	rl := NewRejectLimiter(config.RateLimitConfig{MaxRejected: 1, LockoutSeconds: 1, MaxLockoutSeconds: 10})
	defer rl.Stop()
	defer rl.Stop()

	rl.RecordRejected("192.168.1.1") // locked, count reset to 0
	rl.RecordRejected("192.168.1.2")
	rl.mu.Lock()
	rl.clients["192.168.1.3"] = &rejectInfo{rejected: 1}
	rl.mu.Unlock()

	rl.cleanup(time.Now().Add(time.Hour))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.clients) != 1 {
		t.Errorf("expected only the entry with pending rejects to remain, got %d entries", len(rl.clients))
	}
	if _, ok := rl.clients["192.168.1.3"]; !ok {
		t.Error("entry with pending rejects should survive cleanup")
	}
}
