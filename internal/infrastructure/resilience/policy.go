package resilience

import (
	"context"
	"errors"
	"net"
	"time"
)

// Verdict tells the executor what a failed attempt means.
type Verdict uint8

const (
	// Permanent stops the call and counts against the breaker.
	Permanent Verdict = iota
	// Transient is retried while attempts remain and counts against the breaker.
	Transient
	// CallerFault stops the call and leaves the breaker alone: bad input,
	// cancellation or a deadline the caller picked.
	CallerFault
)

type Classifier func(error) Verdict

// Policy bounds retries and circuit breaking for one outbound dependency.
type Policy struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration

	Breaker         bool
	BreakerMinCalls uint32
	BreakerRatio    float64
	BreakerOpenFor  time.Duration
	BreakerProbes   uint32
}

// GatewayPolicy makes a single attempt per call. Orchestration records a
// failed stage and moves on rather than waiting on a struggling model.
func GatewayPolicy() Policy {
	return Policy{
		Attempts:        1,
		Backoff:         250 * time.Millisecond,
		MaxBackoff:      time.Second,
		Breaker:         true,
		BreakerMinCalls: 10,
		BreakerRatio:    0.5,
		BreakerOpenFor:  30 * time.Second,
		BreakerProbes:   2,
	}
}

// QueuePolicy retries publishes a few times; losing an ingestion event
// leaves a resume parked in "uploaded".
func QueuePolicy() Policy {
	return Policy{
		Attempts:        3,
		Backoff:         100 * time.Millisecond,
		MaxBackoff:      400 * time.Millisecond,
		Breaker:         true,
		BreakerMinCalls: 5,
		BreakerRatio:    0.5,
		BreakerOpenFor:  10 * time.Second,
		BreakerProbes:   1,
	}
}

func (p Policy) orDefaults(def Policy) Policy {
	if p.Attempts <= 0 {
		p.Attempts = def.Attempts
	}
	if p.Backoff <= 0 {
		p.Backoff = def.Backoff
	}
	if p.MaxBackoff < p.Backoff {
		p.MaxBackoff = p.Backoff
	}
	if p.BreakerMinCalls == 0 {
		p.BreakerMinCalls = def.BreakerMinCalls
	}
	if p.BreakerRatio <= 0 || p.BreakerRatio > 1 {
		p.BreakerRatio = def.BreakerRatio
	}
	if p.BreakerOpenFor <= 0 {
		p.BreakerOpenFor = def.BreakerOpenFor
	}
	if p.BreakerProbes == 0 {
		p.BreakerProbes = def.BreakerProbes
	}
	return p
}

// Classify runs the checks every adapter shares: caller cancellation, an open
// breaker and network errors. transient adds adapter-specific retryable cases.
func Classify(err error, transient func(error) bool) Verdict {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CallerFault
	}
	if BreakerOpen(err) {
		return Transient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient
	}
	if transient != nil && transient(err) {
		return Transient
	}
	return Permanent
}
