package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(offset time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(offset)
}

func TestLimiterAllow(t *testing.T) {
	limiter := New(2, time.Second)
	id := "client"

	require.True(t, limiter.CheckLimit(id).Allowed, "first attempt")
	require.True(t, limiter.CheckLimit(id).Allowed, "second attempt")
	require.False(t, limiter.CheckLimit(id).Allowed, "third attempt")

	time.Sleep(time.Second + 10*time.Millisecond)

	require.True(t, limiter.CheckLimit(id).Allowed, "attempt after reset")
}

func TestNewDefaults(t *testing.T) {
	limiter := New(0, 0)
	assert.Equal(t, DefaultMaxRequests, limiter.Limit())
	assert.Equal(t, DefaultWindow, limiter.Window())
}

func TestRemainingDecreasesToZero(t *testing.T) {
	clock := newFakeClock()
	limiter := New(5, time.Minute, WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		d := limiter.CheckLimit("alice")
		require.True(t, d.Allowed, "call %d", i+1)
		require.Equal(t, 5-1-i, d.Remaining, "call %d", i+1)
	}

	d := limiter.CheckLimit("alice")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
}

func TestFixedWindowScenario(t *testing.T) {
	clock := newFakeClock()
	limiter := New(3, time.Second, WithClock(clock.Now))

	steps := []struct {
		at        time.Duration
		allowed   bool
		remaining int
		resetIn   time.Duration
	}{
		{0, true, 2, time.Second},
		{100 * time.Millisecond, true, 1, 900 * time.Millisecond},
		{200 * time.Millisecond, true, 0, 800 * time.Millisecond},
		{300 * time.Millisecond, false, 0, 700 * time.Millisecond},
		{1001 * time.Millisecond, true, 2, time.Second},
	}

	for _, step := range steps {
		clock.Set(step.at)
		d := limiter.CheckLimit("user")
		assert.Equal(t, step.allowed, d.Allowed, "allowed at t=%s", step.at)
		assert.Equal(t, step.remaining, d.Remaining, "remaining at t=%s", step.at)
		assert.Equal(t, step.resetIn, d.ResetIn, "resetIn at t=%s", step.at)
	}
}

func TestWindowEndIsExpired(t *testing.T) {
	clock := newFakeClock()
	limiter := New(1, time.Second, WithClock(clock.Now))

	require.True(t, limiter.CheckLimit("u").Allowed)

	clock.Set(999 * time.Millisecond)
	d := limiter.CheckLimit("u")
	require.False(t, d.Allowed)
	require.Equal(t, time.Millisecond, d.ResetIn)

	clock.Set(time.Second)
	d = limiter.CheckLimit("u")
	require.True(t, d.Allowed)
	require.Equal(t, 0, d.Remaining)
	require.Equal(t, time.Second, d.ResetIn)
}

func TestRejectedCallDoesNotMutate(t *testing.T) {
	clock := newFakeClock()
	limiter := New(2, time.Minute, WithClock(clock.Now))

	limiter.CheckLimit("u")
	limiter.CheckLimit("u")
	for i := 0; i < 3; i++ {
		require.False(t, limiter.CheckLimit("u").Allowed)
	}

	count, ok := limiter.count("u")
	require.True(t, ok)
	assert.Equal(t, 2, count)
}

func TestIdentitiesAreIndependent(t *testing.T) {
	clock := newFakeClock()
	limiter := New(2, time.Minute, WithClock(clock.Now))

	for i := 0; i < 4; i++ {
		limiter.CheckLimit("a")
	}
	require.False(t, limiter.CheckLimit("a").Allowed)

	d := limiter.CheckLimit("b")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, time.Minute, d.ResetIn)
}

func TestCleanupRemovesOnlyExpired(t *testing.T) {
	clock := newFakeClock()
	limiter := New(5, time.Second, WithClock(clock.Now))

	limiter.CheckLimit("old")
	clock.Set(500 * time.Millisecond)
	limiter.CheckLimit("fresh")
	limiter.CheckLimit("fresh")

	clock.Set(time.Second)
	removed := limiter.Cleanup()
	assert.Equal(t, 1, removed)

	_, ok := limiter.count("old")
	assert.False(t, ok, "expired entry should be removed")

	count, ok := limiter.count("fresh")
	require.True(t, ok, "active entry should survive")
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, limiter.Len())
}

func TestConcurrentSameIdentity(t *testing.T) {
	clock := newFakeClock()
	limiter := New(50, time.Minute, WithClock(clock.Now))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.CheckLimit("shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
		if i%20 == 0 {
			go limiter.Cleanup()
		}
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	clock := newFakeClock()
	limiter := New(1, time.Second, WithClock(clock.Now))
	limiter.CheckLimit("gone")
	clock.Set(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	swept := make(chan int, 1)
	done := make(chan error, 1)
	go func() {
		done <- limiter.Run(ctx, 5*time.Millisecond, func(removed int) {
			select {
			case swept <- removed:
			default:
			}
		})
	}()

	select {
	case n := <-swept:
		assert.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.Equal(t, 0, limiter.Len())
}
