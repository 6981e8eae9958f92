package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

// Executor retries and circuit-breaks outbound calls. Each operation name gets
// its own breaker so a failing model endpoint does not block queue publishes.
type Executor struct {
	policy Policy
	logger *zap.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewExecutor(policy Policy, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		policy:   policy.orDefaults(GatewayPolicy()),
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	if fn == nil {
		return fmt.Errorf("resilience: nil call for %q", operation)
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if classify == nil {
		classify = func(err error) Verdict { return Classify(err, nil) }
	}

	if !e.policy.Breaker {
		return e.attempt(ctx, op, fn, classify)
	}
	_, err := e.breaker(op, classify).Execute(func() (struct{}, error) {
		return struct{}{}, e.attempt(ctx, op, fn, classify)
	})
	return err
}

func (e *Executor) attempt(ctx context.Context, op string, fn func(context.Context) error, classify Classifier) error {
	wait := e.policy.Backoff
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if n >= e.policy.Attempts || classify(err) != Transient {
			return err
		}

		e.logger.Warn("retry_attempt",
			zap.String("operation", op),
			zap.Int("attempt", n),
			zap.Int("max_attempts", e.policy.Attempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if !sleep(ctx, wait) {
			return err
		}
		wait = min(2*wait, e.policy.MaxBackoff)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Executor) breaker(op string, classify Classifier) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[op]; ok {
		return cb
	}
	p := e.policy
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        op,
		MaxRequests: p.BreakerProbes,
		Timeout:     p.BreakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= p.BreakerMinCalls &&
				float64(c.TotalFailures)/float64(c.Requests) >= p.BreakerRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || classify(err) == CallerFault
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn("circuit_breaker_state_change",
				zap.String("operation", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	e.breakers[op] = cb
	return cb
}

func BreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Settle turns the final error of a call into a domain error. Transient
// failures, including an open breaker, become ErrTemporary; everything else
// passes through unchanged.
func Settle(operation string, err error, classify Classifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classify == nil {
		classify = func(err error) Verdict { return Classify(err, nil) }
	}
	if classify(err) == Transient {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
