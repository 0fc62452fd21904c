package notify

import (
	"errors"
	"sync"
	"time"

	"github.com/Domenick1991/aircheckin/internal/clock"
)

var ErrBreakerOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

type Counts struct {
	Requests            uint32
	TotalFailures       uint32
	ConsecutiveFailures uint32
}

type BreakerSettings struct {
	// MinRequests before the failure ratio is considered.
	MinRequests  uint32
	FailureRatio float64
	// Interval resets counts while closed; Timeout is how long the breaker
	// stays open before letting a probe through.
	Interval time.Duration
	Timeout  time.Duration
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{MinRequests: 10, FailureRatio: 0.6, Interval: time.Minute, Timeout: 30 * time.Second}
}

// Breaker stops calling a failing transport for a while. A half-open
// breaker lets one probe through; its result closes or reopens it.
type Breaker struct {
	settings BreakerSettings
	clock    clock.Clock

	mu     sync.Mutex
	state  State
	counts Counts
	expiry time.Time
	probe  bool
}

func NewBreaker(settings BreakerSettings, c clock.Clock) *Breaker {
	if c == nil {
		c = clock.Real()
	}
	b := &Breaker{settings: settings, clock: c}
	b.expiry = c.Now().Add(settings.Interval)
	return b
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current(b.clock.Now())
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn()
	b.after(err == nil)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.current(b.clock.Now()) {
	case StateOpen:
		return ErrBreakerOpen
	case StateHalfOpen:
		if b.probe {
			return ErrBreakerOpen
		}
		b.probe = true
	}
	b.counts.Requests++
	return nil
}

func (b *Breaker) after(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock.Now()
	state := b.current(now)

	if success {
		b.counts.ConsecutiveFailures = 0
		if state == StateHalfOpen {
			b.reset(StateClosed, now)
		}
		return
	}
	b.counts.TotalFailures++
	b.counts.ConsecutiveFailures++
	if state == StateHalfOpen || b.readyToTrip() {
		b.reset(StateOpen, now)
	}
}

func (b *Breaker) readyToTrip() bool {
	return b.counts.Requests >= b.settings.MinRequests &&
		float64(b.counts.TotalFailures)/float64(b.counts.Requests) >= b.settings.FailureRatio
}

func (b *Breaker) current(now time.Time) State {
	switch b.state {
	case StateClosed:
		if b.settings.Interval > 0 && !now.Before(b.expiry) {
			b.reset(StateClosed, now)
		}
	case StateOpen:
		if !now.Before(b.expiry) {
			b.reset(StateHalfOpen, now)
		}
	}
	return b.state
}

func (b *Breaker) reset(state State, now time.Time) {
	b.state = state
	b.counts = Counts{}
	b.probe = false
	switch state {
	case StateClosed:
		b.expiry = now.Add(b.settings.Interval)
	case StateOpen:
		b.expiry = now.Add(b.settings.Timeout)
	default:
		b.expiry = time.Time{}
	}
}
