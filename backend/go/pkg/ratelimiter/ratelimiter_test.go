package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestTokenBucket_BurstThenRefill(t *testing.T) {
	clock := newClock()
	tb := newTokenBucket(2, 3, clock.now)

	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "request %d", i)
	}
	assert.False(t, tb.Allow())

	clock.advance(500 * time.Millisecond)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	clock.advance(10 * time.Second)
	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow())
	}
	assert.False(t, tb.Allow())
}

func TestFixedWindowCounter(t *testing.T) {
	clock := newClock()
	fw := newFixedWindowCounter(2, time.Minute, clock.now)

	assert.True(t, fw.Allow())
	assert.True(t, fw.Allow())
	assert.False(t, fw.Allow())

	clock.advance(59 * time.Second)
	assert.False(t, fw.Allow())

	clock.advance(time.Second)
	assert.True(t, fw.Allow())
}

func TestNewFactory(t *testing.T) {
	f, err := NewFactory(Settings{Rate: 1, Capacity: 1})
	require.NoError(t, err)
	assert.IsType(t, &TokenBucket{}, f())

	f, err = NewFactory(Settings{Algorithm: AlgorithmFixedWindow, Limit: 1, Window: time.Second})
	require.NoError(t, err)
	assert.IsType(t, &FixedWindowCounter{}, f())

	_, err = NewFactory(Settings{Algorithm: AlgorithmFixedWindow})
	assert.Error(t, err)
	_, err = NewFactory(Settings{Algorithm: "leakyBucket", Rate: 1, Capacity: 1})
	assert.Error(t, err)
}

func TestPerKey_IndependentBuckets(t *testing.T) {
	p := NewPerKey(func() RateLimiter { return NewFixedWindowCounter(1, time.Hour) }, 0)

	assert.True(t, p.AllowKey("10.0.0.1"))
	assert.False(t, p.AllowKey("10.0.0.1"))
	assert.True(t, p.AllowKey("10.0.0.2"))
	assert.Equal(t, 2, p.Len())
}

func TestPerKey_EvictsIdleKeys(t *testing.T) {
	clock := newClock()
	p := NewPerKey(func() RateLimiter { return NewFixedWindowCounter(1, time.Hour) }, time.Minute)
	p.now = clock.now
	p.lastSweep = clock.now()

	assert.True(t, p.AllowKey("a"))
	clock.advance(2 * time.Minute)
	assert.True(t, p.AllowKey("b"))
	assert.Equal(t, 1, p.Len())

	// "a" was forgotten, so it starts with a fresh limiter.
	assert.True(t, p.AllowKey("a"))
}

func TestShared(t *testing.T) {
	s := Shared{NewFixedWindowCounter(1, time.Hour)}
	assert.True(t, s.AllowKey("a"))
	assert.False(t, s.AllowKey("b"))
}
