// Package dispatch runs resolved actions against executors, applying a
// retry/backoff policy on failure (spec §6's retry strategy, concretized by
// SPEC_FULL.md §4.9). It has no persisted state: every call is a pure
// function of (executor, action, policies, context).
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/konveyor-labs/tornado/action"
	"github.com/konveyor-labs/tornado/tracing"
)

// ExecutorError is the error shape an Executor returns on failure. CanRetry
// distinguishes a transient failure (network hiccup, rate limit) from a
// permanent one (malformed action, unknown id) — only the former is retried.
type ExecutorError struct {
	CanRetry bool
	Message  string
	Code     string
	Data     map[string]any
}

func (e *ExecutorError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("executor error [%s]: %s", e.Code, e.Message)
	}
	return "executor error: " + e.Message
}

// Executor delivers a resolved action to whatever external system the
// action's ID names. Executors are free to be stateful or stateless; that
// state lives outside this package.
type Executor interface {
	Execute(ctx context.Context, act *action.Resolved) error
}

// RetryPolicy is the closed sum NoRetry | MaxRetries(n) | Infinite from
// spec §6, mirroring the Operator/Value closed-sum pattern used elsewhere
// in this module.
type RetryPolicy interface {
	isRetryPolicy()
	// continuesAfter reports whether another attempt should be made after
	// `failed` attempts have already failed (failed is 1 after the first
	// failure).
	continuesAfter(failed int) bool
}

// NoRetry never retries; the first failure is final.
type NoRetry struct{}

// MaxRetries allows up to N additional attempts after the first failure.
type MaxRetries struct{ N int }

// Infinite retries forever, bounded only by the backoff policy and the
// caller's context.
type Infinite struct{}

func (NoRetry) isRetryPolicy()    {}
func (MaxRetries) isRetryPolicy() {}
func (Infinite) isRetryPolicy()   {}

func (NoRetry) continuesAfter(int) bool           { return false }
func (p MaxRetries) continuesAfter(failed int) bool { return failed <= p.N }
func (Infinite) continuesAfter(int) bool           { return true }

// defaultExponentialCeiling bounds Exponential backoff when the policy
// doesn't name its own ceiling, so a long retry run can never overflow
// time.Duration's int64 nanosecond range.
const defaultExponentialCeiling = 5 * time.Minute

// BackoffPolicy is the closed sum NoBackoff | Fixed(d) | Variable([]d) |
// Exponential(base, mult) from spec §6.
type BackoffPolicy interface {
	isBackoffPolicy()
	// delay returns how long to wait before the attempt that follows
	// `failed` prior failures (failed is 1 before the second attempt).
	delay(failed int) time.Duration
}

// NoBackoff retries immediately.
type NoBackoff struct{}

// Fixed waits the same duration before every retry.
type Fixed struct{ D time.Duration }

// Variable waits D[i] before retry i+1; once exhausted, the last value
// repeats.
type Variable struct{ D []time.Duration }

// Exponential waits Base*Mult^(failed-1), saturating at Ceiling (or
// defaultExponentialCeiling when Ceiling is zero).
type Exponential struct {
	Base    time.Duration
	Mult    float64
	Ceiling time.Duration
}

func (NoBackoff) isBackoffPolicy()    {}
func (Fixed) isBackoffPolicy()        {}
func (Variable) isBackoffPolicy()     {}
func (Exponential) isBackoffPolicy()  {}

func (NoBackoff) delay(int) time.Duration { return 0 }
func (p Fixed) delay(int) time.Duration   { return p.D }

func (p Variable) delay(failed int) time.Duration {
	if len(p.D) == 0 {
		return 0
	}
	idx := failed - 1
	if idx >= len(p.D) {
		idx = len(p.D) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return p.D[idx]
}

func (p Exponential) delay(failed int) time.Duration {
	ceiling := p.Ceiling
	if ceiling == 0 {
		ceiling = defaultExponentialCeiling
	}
	d := float64(p.Base)
	for i := 1; i < failed; i++ {
		d *= p.Mult
		if d >= float64(ceiling) {
			return ceiling
		}
	}
	if d >= float64(ceiling) {
		return ceiling
	}
	return time.Duration(d)
}

// Dispatch runs exec against act, retrying per retry/backoff until the
// executor succeeds, returns a non-retryable ExecutorError, the retry
// policy is exhausted, or ctx is cancelled (spec §6/§4.9).
func Dispatch(ctx context.Context, exec Executor, act *action.Resolved, retry RetryPolicy, backoff BackoffPolicy) error {
	ctx, span := tracing.StartNewSpan(ctx, "dispatch.Dispatch")
	defer span.End()
	failed := 0
	for {
		err := exec.Execute(ctx, act)
		if err == nil {
			return nil
		}
		failed++
		var execErr *ExecutorError
		canRetry := errors.As(err, &execErr) && execErr.CanRetry
		if !canRetry || !retry.continuesAfter(failed) {
			return err
		}
		d := backoff.delay(failed)
		if d <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
}

// DispatchAll fans actions out one goroutine each, bounded by concurrency
// (0 means unbounded), and joins them preserving the input order in the
// returned error slice — the same fan-out/fan-in-with-order shape the
// matcher uses for concurrent filter children (spec §5).
func DispatchAll(ctx context.Context, exec Executor, actions []*action.Resolved, retry RetryPolicy, backoff BackoffPolicy, concurrency int) []error {
	ctx, span := tracing.StartNewSpan(ctx, "dispatch.DispatchAll")
	defer span.End()
	out := make([]error, len(actions))
	if len(actions) == 0 {
		return out
	}
	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, act := range actions {
		i, act := i, act
		g.Go(func() error {
			out[i] = Dispatch(gctx, exec, act, retry, backoff)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
