package chat

import "sync"

// ConnLimiter bounds the number of concurrently open streaming connections
// process-wide. It is a pure counting semaphore with a hard ceiling and
// immediate rejection instead of a blocking wait. It holds no per-connection
// identity.
type ConnLimiter struct {
	mu     sync.Mutex
	max    int
	active int
}

// NewConnLimiter creates a limiter with the given ceiling.
func NewConnLimiter(max int) *ConnLimiter {
	return &ConnLimiter{max: max}
}

// Acquire claims a connection slot, failing with ErrCapacityExceeded when
// the limiter is at its ceiling. It never blocks beyond the counter mutex.
func (l *ConnLimiter) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active >= l.max {
		return ErrCapacityExceeded
	}
	l.active++
	return nil
}

// Release returns a slot. The counter is floored at zero, so a stray extra
// release cannot drive it negative. Call at most once per successful Acquire.
func (l *ConnLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active > 0 {
		l.active--
	}
}

// Active returns the number of held slots.
func (l *ConnLimiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}
