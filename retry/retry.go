package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// BackoffFunc returns how long to wait after a given failed attempt.
// Attempts are numbered from 1.
type BackoffFunc func(attempt int) time.Duration

// Linear scales the delay with the attempt number: base, 2*base, 3*base, ...
// capped at max.
func Linear(base, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		delay := base * time.Duration(attempt)
		if max > 0 && delay > max {
			return max
		}
		return delay
	}
}

// Exponential multiplies the delay by factor after each attempt: initial,
// initial*factor, initial*factor^2, ... capped at max.
func Exponential(initial, max time.Duration, factor float64) BackoffFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		delay := float64(initial)
		for i := 1; i < attempt; i++ {
			delay *= factor
			if max > 0 && delay >= float64(max) {
				return max
			}
		}
		if max > 0 && delay > float64(max) {
			return max
		}
		return time.Duration(delay)
	}
}

// Constant waits the same duration after every attempt.
func Constant(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// Policy describes retry behavior independent of any particular operation:
// attempt budget, backoff shape, and which errors deserve another try.
type Policy struct {
	MaxAttempts int              // total attempts including the first
	Backoff     BackoffFunc      // delay between attempts
	Retryable   func(error) bool // nil retries everything except Permanent errors
	Clock       clockwork.Clock  // nil uses the real clock
}

// DefaultPolicy returns the policy used for scoring-source fetches:
// three attempts with linearly growing delays.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     Linear(2*time.Second, 30*time.Second),
	}
}

func (p Policy) clock() clockwork.Clock {
	if p.Clock != nil {
		return p.Clock
	}
	return clockwork.NewRealClock()
}

func (p Policy) retryable(err error) bool {
	if IsPermanent(err) {
		return false
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// Runner executes operations under a Policy with structured logging.
type Runner struct {
	policy Policy
	log    zerolog.Logger
}

// NewRunner creates a retry runner. Zero policy fields fall back to defaults.
func NewRunner(policy Policy, log zerolog.Logger) *Runner {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultPolicy().MaxAttempts
	}
	if policy.Backoff == nil {
		policy.Backoff = DefaultPolicy().Backoff
	}
	return &Runner{
		policy: policy,
		log:    log.With().Str("component", "retry").Logger(),
	}
}

// Execute runs fn under the runner's policy. It returns nil on the first
// success, the original error when it is not retryable, and a wrapped error
// after the attempt budget is exhausted. The wait between attempts is
// cancellable through ctx.
func (r *Runner) Execute(ctx context.Context, operation string, fn func() error) error {
	p := r.policy
	clock := p.clock()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			if attempt > 1 {
				r.log.Info().
					Str("operation", operation).
					Int("attempts", attempt).
					Msg("operation succeeded after retries")
			}
			return nil
		}

		lastErr = err

		if !p.retryable(err) {
			r.log.Error().
				Err(err).
				Str("operation", operation).
				Msg("non-retryable error encountered")
			return err
		}

		if attempt == p.MaxAttempts {
			break
		}

		delay := p.Backoff(attempt)
		r.log.Warn().
			Err(err).
			Str("operation", operation).
			Int("attempt", attempt).
			Int("max_attempts", p.MaxAttempts).
			Dur("retry_in", delay).
			Msg("operation failed, retrying")

		select {
		case <-clock.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.log.Error().
		Err(lastErr).
		Str("operation", operation).
		Int("attempts", p.MaxAttempts).
		Msg("operation failed after all retries")

	return fmt.Errorf("operation %s failed after %d attempts: %w",
		operation, p.MaxAttempts, lastErr)
}

// permanentError marks an error that must never be retried regardless of the
// policy's classifier.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so retry runners stop immediately when they see it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
