package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

type Config struct {
	FailureThreshold uint32
	SuccessThreshold uint32
	OpenTimeout      time.Duration
	Logger           *zap.Logger
}

// Breaker trips after FailureThreshold consecutive failures, rejects calls
// while open, and closes again after SuccessThreshold consecutive successes
// in the half-open probe window.
type Breaker struct {
	name             string
	failureThreshold uint32
	successThreshold uint32
	openTimeout      time.Duration
	logger           *zap.Logger

	mu        sync.Mutex
	state     State
	failures  uint32
	successes uint32
	openedAt  time.Time
}

func New(name string, cfg Config) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		openTimeout:      cfg.OpenTimeout,
		logger:           cfg.Logger,
	}
	if b.failureThreshold == 0 {
		b.failureThreshold = 5
	}
	if b.successThreshold == 0 {
		b.successThreshold = 2
	}
	if b.openTimeout == 0 {
		b.openTimeout = 30 * time.Second
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	return b
}

func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		b.record(false)
		return err
	}
	err := fn()
	b.record(err == nil)
	return err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh(time.Now())
	return b.state
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh(time.Now())
	if b.state == StateOpen {
		return ErrOpen
	}
	return nil
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.successes++
			if b.successes >= b.successThreshold {
				b.transition(StateClosed)
			}
		}
		return
	}

	b.successes = 0
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.failureThreshold {
		b.transition(StateOpen)
		b.openedAt = time.Now()
	}
}

func (b *Breaker) refresh(now time.Time) {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.openTimeout {
		b.transition(StateHalfOpen)
	}
}

func (b *Breaker) transition(next State) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	b.failures = 0
	b.successes = 0
	b.logger.Info("circuit breaker state changed",
		zap.String("name", b.name),
		zap.String("from", prev.String()),
		zap.String("to", next.String()),
	)
}
