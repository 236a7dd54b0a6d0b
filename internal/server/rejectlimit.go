package server

import (
	"sync"
	"time"

	"github.com/lawnchairsociety/tilegen/internal/config"
)

// RejectLimiter locks out client IPs that keep sending requests the server
// rejects. Lockouts double on every repeat, up to a ceiling.
type RejectLimiter struct {
	mu              sync.Mutex
	clients         map[string]*rejectInfo
	maxRejected     int
	lockout         time.Duration
	maxLockout      time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

type rejectInfo struct {
	rejected     int
	lockedUntil  time.Time
	lockoutCount int
}

// NewRejectLimiter creates a limiter and starts its cleanup goroutine.
func NewRejectLimiter(cfg config.RateLimitConfig) *RejectLimiter {
	rl := &RejectLimiter{
		clients:         make(map[string]*rejectInfo),
		maxRejected:     cfg.MaxRejected,
		lockout:         time.Duration(cfg.LockoutSeconds) * time.Second,
		maxLockout:      time.Duration(cfg.MaxLockoutSeconds) * time.Second,
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	if rl.maxRejected == 0 {
		rl.maxRejected = 5
	}
	if rl.lockout == 0 {
		rl.lockout = 30 * time.Second
	}
	if rl.maxLockout == 0 {
		rl.maxLockout = 5 * time.Minute
	}

	go rl.cleanupLoop()
	return rl
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (rl *RejectLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// IsLocked reports whether ip is locked out and for how much longer.
func (rl *RejectLimiter) IsLocked(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	info, ok := rl.clients[ip]
	if !ok || !time.Now().Before(info.lockedUntil) {
		return false, 0
	}
	return true, time.Until(info.lockedUntil)
}

// RecordRejected counts a rejected request from ip. It reports whether ip is
// now locked out, and for how long.
func (rl *RejectLimiter) RecordRejected(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	info, ok := rl.clients[ip]
	if !ok {
		info = &rejectInfo{}
		rl.clients[ip] = info
	}

	if time.Now().Before(info.lockedUntil) {
		return true, time.Until(info.lockedUntil)
	}

	info.rejected++
	if info.rejected < rl.maxRejected {
		return false, 0
	}

	info.lockoutCount++
	d := rl.lockout
	for i := 1; i < info.lockoutCount; i++ {
		// Compare before doubling so the duration cannot overflow
		if d >= rl.maxLockout/2 {
			d = rl.maxLockout
			break
		}
		d *= 2
	}
	if d > rl.maxLockout {
		d = rl.maxLockout
	}
	info.lockedUntil = time.Now().Add(d)
	info.rejected = 0
	return true, d
}

// RecordAccepted clears the reject count for ip. The lockout history is kept
// until cleanup drops the entry, so repeat offenders still back off.
func (rl *RejectLimiter) RecordAccepted(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if info, ok := rl.clients[ip]; ok {
		info.rejected = 0
	}
}

// Rejected returns the current reject count for ip.
func (rl *RejectLimiter) Rejected(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if info, ok := rl.clients[ip]; ok {
		return info.rejected
	}
	return 0
}

func (rl *RejectLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCleanup:
			return
		case <-ticker.C:
			rl.cleanup(time.Now())
		}
	}
}

// cleanup drops entries unlocked for at least ten minutes with no pending rejects.
func (rl *RejectLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-10 * time.Minute)
	for ip, info := range rl.clients {
		if info.lockedUntil.Before(cutoff) && info.rejected == 0 {
			delete(rl.clients, ip)
		}
	}
}
