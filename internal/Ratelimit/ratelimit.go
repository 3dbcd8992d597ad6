package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Limiter is a token bucket shared by every stage of a run. Stages that hit
// remote infrastructure ask it for admission before launching a tool; the
// returned wait is slept by the caller, never inside the lock.
type Limiter struct {
	mu         sync.Mutex
	rps        float64
	burst      float64
	tokens     float64
	lastUpdate time.Time
	toolLimits map[string]float64
	enabled    bool

	now func() time.Time
}

const (
	defaultRPS   = 10
	defaultBurst = 50
)

// New returns an enabled limiter with the default rate (10 RPS, burst 50).
func New() *Limiter {
	return &Limiter{
		rps:        defaultRPS,
		burst:      defaultBurst,
		tokens:     defaultBurst,
		lastUpdate: time.Now(),
		toolLimits: map[string]float64{},
		enabled:    true,
		now:        time.Now,
	}
}

// Configure sets the global rate and burst capacity. A rate or burst of zero
// or below is rejected here so Acquire never has to divide by it.
func (l *Limiter) Configure(rps float64, burst int) error {
	if rps <= 0 {
		return fmt.Errorf("rate limit: global rps must be > 0, got %v", rps)
	}
	if burst <= 0 {
		return fmt.Errorf("rate limit: burst capacity must be > 0, got %d", burst)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rps = rps
	l.burst = float64(burst)
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	return nil
}

// SetToolLimit overrides the RPS used for one named tool. The bucket itself
// stays shared; only the refill and wait arithmetic for that tool changes.
func (l *Limiter) SetToolLimit(tool string, rps float64) error {
	if rps <= 0 {
		return fmt.Errorf("rate limit: rps for %s must be > 0, got %v", tool, rps)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.toolLimits[tool] = rps
	return nil
}

// Acquire debits cost tokens for tool and returns how long the caller must
// sleep before proceeding. A zero return means the request was admitted
// immediately. When the bucket is short, the shortfall is reserved by
// advancing lastUpdate into the future so the next caller's elapsed-time
// refill accounts for it.
func (l *Limiter) Acquire(tool string, cost float64) time.Duration {
	if cost <= 0 {
		cost = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled {
		return 0
	}

	now := l.now()
	effective := l.rps
	if tool != "" {
		if rps, ok := l.toolLimits[tool]; ok {
			effective = rps
		}
	}

	// elapsed is negative while an earlier reservation holds lastUpdate in
	// the future; the debt flows into the wait computed below.
	elapsed := now.Sub(l.lastUpdate).Seconds()
	l.tokens += elapsed * effective
	if l.tokens > l.burst {
		l.tokens = l.burst
	}

	if l.tokens >= cost {
		l.tokens -= cost
		l.lastUpdate = now
		return 0
	}

	waitSeconds := (cost - l.tokens) / effective
	l.tokens = 0
	l.lastUpdate = now.Add(time.Duration(waitSeconds * float64(time.Second)))
	return time.Duration(waitSeconds * float64(time.Second))
}

// Wait blocks until tool is admitted.
func (l *Limiter) Wait(tool string) {
	if d := l.Acquire(tool, 1); d > 0 {
		time.Sleep(d)
	}
}

// Disable makes Acquire admit everything immediately.
func (l *Limiter) Disable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = false
}

// Enable re-arms the limiter after Disable.
func (l *Limiter) Enable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = true
	l.lastUpdate = l.now()
}

// Status reports the limiter state for logging.
func (l *Limiter) Status() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	limits := make(map[string]float64, len(l.toolLimits))
	for k, v := range l.toolLimits {
		limits[k] = v
	}
	return map[string]interface{}{
		"enabled":        l.enabled,
		"global_rps":     l.rps,
		"burst_capacity": l.burst,
		"current_tokens": l.tokens,
		"tool_limits":    limits,
	}
}
