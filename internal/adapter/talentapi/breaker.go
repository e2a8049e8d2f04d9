package talentapi

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/talentfinder/internal/adapter/observability"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker stops calls to the talent API after maxFailures consecutive
// upstream failures. After cooldown one probe is let through; its outcome
// closes or reopens the circuit. A nil *Breaker allows everything.
type Breaker struct {
	mu          sync.Mutex
	maxFailures int
	cooldown    time.Duration
	state       BreakerState
	failures    int
	since       time.Time
	now         func() time.Time
}

// NewBreaker returns nil when maxFailures is not positive.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	if maxFailures <= 0 {
		return nil
	}
	return &Breaker{maxFailures: maxFailures, cooldown: cooldown, now: time.Now}
}

// Allow reports whether a call may go out now.
func (b *Breaker) Allow() bool {
	if b == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case BreakerClosed:
		return true
	default:
		// A half-open probe that never reported back is retried after
		// another cooldown.
		if b.now().Sub(b.since) < b.cooldown {
			return false
		}
		b.setState(BreakerHalfOpen)
		return true
	}
}

// Record reports the outcome of a call that Allow let through. Only
// upstream failures count against the circuit.
func (b *Breaker) Record(upstreamFailure bool) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !upstreamFailure {
		b.failures = 0
		if b.state != BreakerClosed {
			slog.Info("talent api circuit closed")
			b.setState(BreakerClosed)
		}
		return
	}
	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.maxFailures {
		if b.state != BreakerOpen {
			slog.Warn("talent api circuit opened", slog.Int("failures", b.failures))
		}
		b.setState(BreakerOpen)
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	if b == nil {
		return BreakerClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) setState(s BreakerState) {
	b.state = s
	b.since = b.now()
	observability.SetBreakerState(int(s))
}
