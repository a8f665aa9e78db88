package herald

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock lets window tests run without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, max int, window time.Duration) (*AttemptLimiter, *fakeClock) {
	l := NewAttemptLimiter(max, window)
	t.Cleanup(l.Close)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l.now = clock.Now
	return l, clock
}

func TestAttemptLimiterBlocksAfterMax(t *testing.T) {
	l, _ := newTestLimiter(t, 2, time.Minute)
	ip := "203.0.113.10"

	assert.True(t, l.Allow(ip), "first attempt")
	assert.True(t, l.Allow(ip), "second attempt")
	assert.False(t, l.Allow(ip), "third attempt is blocked")
}

func TestAttemptLimiterResetsAfterWindow(t *testing.T) {
	l, clock := newTestLimiter(t, 1, time.Minute)
	ip := "203.0.113.20"

	assert.True(t, l.Allow(ip))
	assert.False(t, l.Allow(ip))

	clock.Advance(61 * time.Second)
	assert.True(t, l.Allow(ip), "attempt after the window is allowed")
}

func TestAttemptLimiterIsPerKey(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)

	assert.True(t, l.Allow("203.0.113.30"))
	assert.True(t, l.Allow("203.0.113.31"), "second ip is independent")
	assert.False(t, l.Allow("203.0.113.30"))
}

func TestAttemptLimiterCheckDoesNotRecord(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)
	for i := 0; i < 5; i++ {
		assert.True(t, l.Check("k"))
	}
	l.Record("k")
	assert.False(t, l.Check("k"))
	l.Reset("k")
	assert.True(t, l.Check("k"))
}
