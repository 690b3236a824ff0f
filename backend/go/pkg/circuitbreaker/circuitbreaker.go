package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed lets every request through and counts consecutive failures.
	Closed State = iota
	// Open rejects requests until the timeout has elapsed.
	Open
	// HalfOpen lets a limited number of trial requests through.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

var (
	// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned in HalfOpen when all trial slots are taken.
	ErrTooManyRequests = errors.New("circuit breaker is half-open: too many trial requests")
)

// CircuitBreaker guards calls to an unreliable dependency.
type CircuitBreaker interface {
	// Execute runs req unless the circuit is open.
	Execute(req func() (interface{}, error)) (interface{}, error)
	State() State
}

// Option customises a breaker created by New.
type Option func(*breaker)

// WithStateChange registers a callback invoked, outside the lock, on every
// state transition.
func WithStateChange(fn func(from, to State)) Option {
	return func(b *breaker) { b.onStateChange = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *breaker) { b.now = now }
}

type breaker struct {
	failureThreshold uint32
	successThreshold uint32
	timeout          time.Duration

	state                State
	consecutiveFailures  uint32
	consecutiveSuccesses uint32
	inFlightTrials       uint32
	openedAt             time.Time

	now           func() time.Time
	onStateChange func(from, to State)
	mutex         sync.Mutex
}

// New creates a breaker that opens after failureThreshold consecutive
// failures, stays open for timeout, and closes again after successThreshold
// consecutive successes while half-open. Zero thresholds are treated as 1.
func New(failureThreshold, successThreshold uint32, timeout time.Duration, opts ...Option) CircuitBreaker {
	if failureThreshold == 0 {
		failureThreshold = 1
	}
	if successThreshold == 0 {
		successThreshold = 1
	}
	b := &breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		state:            Closed,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *breaker) State() State {
	b.mutex.Lock()
	state, t := b.currentState()
	b.mutex.Unlock()
	b.notify(t)
	return state
}

func (b *breaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	if err := b.before(); err != nil {
		return nil, err
	}
	res, err := req()
	b.after(err == nil)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// currentState applies the Open -> HalfOpen transition. Callers hold the lock.
func (b *breaker) currentState() (State, *transition) {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.timeout {
		return HalfOpen, b.setState(HalfOpen)
	}
	return b.state, nil
}

type transition struct{ from, to State }

func (b *breaker) setState(to State) *transition {
	if b.state == to {
		return nil
	}
	t := &transition{from: b.state, to: to}
	b.state = to
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	b.inFlightTrials = 0
	if to == Open {
		b.openedAt = b.now()
	}
	return t
}

func (b *breaker) notify(t *transition) {
	if t != nil && b.onStateChange != nil {
		b.onStateChange(t.from, t.to)
	}
}

func (b *breaker) before() error {
	b.mutex.Lock()
	state, t := b.currentState()
	var err error
	switch state {
	case Open:
		err = ErrCircuitOpen
	case HalfOpen:
		if b.inFlightTrials >= b.successThreshold {
			err = ErrTooManyRequests
		} else {
			b.inFlightTrials++
		}
	}
	b.mutex.Unlock()
	b.notify(t)
	return err
}

func (b *breaker) after(success bool) {
	b.mutex.Lock()
	var t *transition
	switch b.state {
	case Closed:
		if success {
			b.consecutiveFailures = 0
		} else {
			b.consecutiveFailures++
			if b.consecutiveFailures >= b.failureThreshold {
				t = b.setState(Open)
			}
		}
	case HalfOpen:
		if b.inFlightTrials > 0 {
			b.inFlightTrials--
		}
		if !success {
			t = b.setState(Open)
			break
		}
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.successThreshold {
			t = b.setState(Closed)
		}
	}
	b.mutex.Unlock()
	b.notify(t)
}
