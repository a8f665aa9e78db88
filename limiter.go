package herald

import (
	"sync"
	"time"
)

// AttemptLimiter counts failed attempts per key (client IP) in a sliding
// window. The console login and the rebuild webhook each own one.
type AttemptLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

// NewAttemptLimiter creates a limiter that allows max attempts per window.
func NewAttemptLimiter(max int, window time.Duration) *AttemptLimiter {
	l := &AttemptLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Close stops the background sweep.
func (l *AttemptLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *AttemptLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			for key := range l.attempts {
				l.prune(key)
			}
			l.mu.Unlock()
		}
	}
}

// prune drops expired attempts for key. Callers hold mu.
func (l *AttemptLimiter) prune(key string) []time.Time {
	cutoff := l.now().Add(-l.window)
	hits := l.attempts[key]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.attempts, key)
		return nil
	}
	l.attempts[key] = kept
	return kept
}

// Allow checks the limit and records the attempt in one step.
func (l *AttemptLimiter) Allow(key string) bool {
	if !l.Check(key) {
		return false
	}
	l.Record(key)
	return true
}

// Check returns true if key has not exceeded the limit. It does not record
// an attempt; call Record on failure.
func (l *AttemptLimiter) Check(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(key)) < l.max
}

// Record registers a failed attempt for key.
func (l *AttemptLimiter) Record(key string) {
	l.mu.Lock()
	l.attempts[key] = append(l.attempts[key], l.now())
	l.mu.Unlock()
}

// Reset forgets key, e.g. after a successful login.
func (l *AttemptLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.attempts, key)
	l.mu.Unlock()
}
