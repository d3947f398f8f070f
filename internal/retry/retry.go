// Package retry wraps a single outbound call with bounded retry and failure
// classification. Rate limiting (429) and server faults (>=500) are retried;
// everything else propagates immediately.
package retry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fieldhand/fieldhand/internal/gemini"
)

// DefaultMaxRetries is the number of retries after the initial attempt.
const DefaultMaxRetries = 3

const delayBudget = 2000 * time.Millisecond

// Executor retries a callable with the shrinking-quotient delay schedule:
// before each retry it waits delayBudget divided by the retries still
// remaining, so with 3 retries the delays are ~666ms, 1000ms, 2000ms.
// The schedule is deliberate and must not be replaced with exponential
// backoff; it is the system's only fault-tolerance policy.
type Executor struct {
	MaxRetries int
	// Sleep is swapped out by tests to record delays instead of waiting.
	Sleep func(time.Duration)
}

// New returns an Executor with the default retry count and real sleeping.
func New() *Executor {
	return &Executor{MaxRetries: DefaultMaxRetries, Sleep: time.Sleep}
}

// Do invokes fn, retrying retryable failures until MaxRetries is exhausted,
// then returns the last error. Each call owns its own retry counter, so a
// single Executor is safe for concurrent use. The in-flight call is never
// cancelled by Do itself; ctx is passed through for the callable's own use.
func Do[T any](ctx context.Context, e *Executor, fn func(context.Context) (T, error)) (T, error) {
	sleep := e.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var zero T
	for remaining := e.MaxRetries; ; remaining-- {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if !Retryable(err) || remaining <= 0 {
			return zero, err
		}
		sleep(delayBudget / time.Duration(remaining))
	}
}

// Retryable reports whether err is a transient service fault: an API status
// of 429 or anything server-side (>=500).
func Retryable(err error) bool {
	var se *gemini.StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == http.StatusTooManyRequests || se.Code >= 500
}
