package reporter

import (
	"context"
	"errors"
	"time"

	dm "github.com/andrej220/hamagent/pkg/shared-models"
	"github.com/sony/gobreaker"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type BreakerSettings struct {
	Name        string
	MaxFailures uint32        // consecutive failures that open the circuit
	OpenFor     time.Duration // how long the circuit stays open before a trial request
	// OnStateChange is called on every transition, may be nil.
	OnStateChange func(name string, from, to gobreaker.State)
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.OpenFor <= 0 {
		s.OpenFor = 30 * time.Second
	}
	return s
}

// Breaker wraps a Reporter with a circuit breaker. While the circuit is
// open deliveries fail fast with ErrCircuitOpen instead of reaching the
// network. A Breaker holds state and must not be shared between loops.
type Breaker struct {
	next Reporter
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next Reporter, s BreakerSettings) *Breaker {
	s = s.withDefaults()
	maxFailures := s.MaxFailures
	cbs := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: s.OnStateChange,
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(cbs)}
}

func (b *Breaker) Report(ctx context.Context, rec dm.ResultRecord) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Report(ctx, rec)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
