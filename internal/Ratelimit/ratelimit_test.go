package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frozenClock lets tests control refill arithmetic exactly.
type frozenClock struct {
	t time.Time
}

func (c *frozenClock) now() time.Time {
	return c.t
}

func (c *frozenClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestLimiter(t *testing.T, rps float64, burst int) (*Limiter, *frozenClock) {
	t.Helper()
	clock := &frozenClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := New()
	require.NoError(t, l.Configure(rps, burst))
	l.now = clock.now
	l.lastUpdate = clock.t
	l.tokens = float64(burst)
	return l, clock
}

func TestConfigureRejectsNonPositiveRates(t *testing.T) {
	l := New()
	assert.Error(t, l.Configure(0, 50))
	assert.Error(t, l.Configure(-5, 50))
	assert.Error(t, l.Configure(10, 0))
	assert.Error(t, l.SetToolLimit("nuclei", 0))
	assert.Error(t, l.SetToolLimit("nuclei", -1))
	assert.NoError(t, l.Configure(10, 50))
	assert.NoError(t, l.SetToolLimit("nuclei", 2))
}

func TestBurstThenWait(t *testing.T) {
	l, _ := newTestLimiter(t, 10, 50)

	admitted := 0
	for i := 0; i < 50; i++ {
		if d := l.Acquire("subfinder", 1); d == 0 {
			admitted++
		}
	}
	assert.Equal(t, 50, admitted, "burst capacity should admit exactly 50 without wait")

	// 51st request must wait; with an empty bucket the shortfall is 1 token
	// at 10 RPS = 100ms.
	wait := l.Acquire("subfinder", 1)
	assert.Equal(t, 100*time.Millisecond, wait)

	// Subsequent waits grow monotonically while the clock is frozen: every
	// reservation pushes lastUpdate further into the future.
	prev := wait
	for i := 0; i < 5; i++ {
		next := l.Acquire("subfinder", 1)
		assert.GreaterOrEqual(t, next, prev)
		prev = next
	}
}

func TestRefillAfterElapsedTime(t *testing.T) {
	l, clock := newTestLimiter(t, 10, 50)

	for i := 0; i < 50; i++ {
		l.Acquire("", 1)
	}
	require.NotZero(t, l.Acquire("", 1))

	// 10 RPS for 2 seconds refills 20 tokens (minus the one reserved above).
	clock.advance(2 * time.Second)
	admitted := 0
	for i := 0; i < 25; i++ {
		if l.Acquire("", 1) == 0 {
			admitted++
		}
	}
	assert.Equal(t, 19, admitted)
}

func TestAdmissionBound(t *testing.T) {
	// Over any window T the admitted units may not exceed burst + rps*T.
	l, clock := newTestLimiter(t, 5, 10)

	admitted := 0
	for step := 0; step < 100; step++ {
		if l.Acquire("httpx", 1) == 0 {
			admitted++
		}
		clock.advance(100 * time.Millisecond)
	}
	window := 10 * time.Second
	bound := 10 + int(5*window.Seconds())
	assert.LessOrEqual(t, admitted, bound)
}

func TestToolOverrideChangesWaitArithmetic(t *testing.T) {
	l, _ := newTestLimiter(t, 10, 50)
	require.NoError(t, l.SetToolLimit("dirsearch", 2))

	// Drain the shared bucket through the global rate.
	for i := 0; i < 50; i++ {
		l.Acquire("httpx", 1)
	}

	// With zero tokens, the wait for the throttled tool is 1/2s while the
	// global tool would have waited 1/10s.
	slow := l.Acquire("dirsearch", 1)
	assert.Equal(t, 500*time.Millisecond, slow)

	l2, _ := newTestLimiter(t, 10, 50)
	for i := 0; i < 50; i++ {
		l2.Acquire("httpx", 1)
	}
	fast := l2.Acquire("httpx", 1)
	assert.Equal(t, 100*time.Millisecond, fast)
	assert.Greater(t, slow, fast)
}

func TestDisableAdmitsEverything(t *testing.T) {
	l, _ := newTestLimiter(t, 1, 1)
	l.Disable()
	for i := 0; i < 100; i++ {
		assert.Zero(t, l.Acquire("nuclei", 1))
	}
	l.Enable()
	l.Acquire("nuclei", 1) // burns the single token
	assert.NotZero(t, l.Acquire("nuclei", 1))
}

func TestCostBelowOneIsNormalized(t *testing.T) {
	l, _ := newTestLimiter(t, 10, 2)
	assert.Zero(t, l.Acquire("", 0))
	assert.Zero(t, l.Acquire("", -3))
	assert.NotZero(t, l.Acquire("", 1))
}

func TestStatusSnapshot(t *testing.T) {
	l, _ := newTestLimiter(t, 10, 50)
	require.NoError(t, l.SetToolLimit("gau", 3))
	st := l.Status()
	assert.Equal(t, true, st["enabled"])
	assert.Equal(t, float64(10), st["global_rps"])
	assert.Equal(t, map[string]float64{"gau": 3}, st["tool_limits"])
}
