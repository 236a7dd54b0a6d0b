// Package throttle limits how often a single connection may start work.
package throttle

import (
	"sync"
	"time"
)

// Config holds request throttling configuration
type Config struct {
	Enabled     bool          // Whether throttling is enabled
	MaxRequests int           // Max requests allowed in the time window
	TimeWindow  time.Duration // Time window for rate limiting
}

// DefaultConfig returns sensible defaults for throttling
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		MaxRequests: 10,
		TimeWindow:  10 * time.Second,
	}
}

// ConfigFromYAML creates a Config from YAML-loaded values. Zero values keep
// the defaults.
func ConfigFromYAML(enabled bool, maxRequests, timeWindowSeconds int) Config {
	cfg := DefaultConfig()
	cfg.Enabled = enabled
	if maxRequests > 0 {
		cfg.MaxRequests = maxRequests
	}
	if timeWindowSeconds > 0 {
		cfg.TimeWindow = time.Duration(timeWindowSeconds) * time.Second
	}
	return cfg
}

// Tracker tracks request activity for a single connection
type Tracker struct {
	mu           sync.Mutex
	config       Config
	requestTimes []time.Time // Timestamps of recent requests
	now          func() time.Time
}

// NewTracker creates a new tracker with the given config
func NewTracker(config Config) *Tracker {
	return &Tracker{
		config:       config,
		requestTimes: make([]time.Time, 0, config.MaxRequests),
		now:          time.Now,
	}
}

// CheckResult contains the result of a throttle check
type CheckResult struct {
	Allowed bool
	Wait    time.Duration // How long to wait before trying again (if not allowed)
}

// Check records a request if it is allowed
func (t *Tracker) Check() CheckResult {
	if !t.config.Enabled {
		return CheckResult{Allowed: true}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.cleanup(now)

	if len(t.requestTimes) >= t.config.MaxRequests {
		// Wait until the oldest request leaves the window
		oldest := t.requestTimes[0]
		return CheckResult{
			Allowed: false,
			Wait:    oldest.Add(t.config.TimeWindow).Sub(now),
		}
	}

	t.requestTimes = append(t.requestTimes, now)
	return CheckResult{Allowed: true}
}

// cleanup removes request times outside the window
func (t *Tracker) cleanup(now time.Time) {
	cutoff := now.Add(-t.config.TimeWindow)
	kept := t.requestTimes[:0]
	for _, reqTime := range t.requestTimes {
		if reqTime.After(cutoff) {
			kept = append(kept, reqTime)
		}
	}
	t.requestTimes = kept
}

// Reset clears all tracking data
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requestTimes = t.requestTimes[:0]
}
