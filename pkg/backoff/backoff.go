package backoff

import (
	"fmt"
	"math/rand"
	"time"
)

// RetriesExhaustedError is returned when every retry attempt hit a
// retryable error. It is distinct from the underlying remote error so
// callers can tell rate-limit exhaustion apart from a hard failure.
type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("max retries (%d) reached: %v", e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Last }

// Executor retries an operation with exponential backoff while the
// injected predicate classifies the error as retryable (rate limiting).
// Any other error propagates immediately.
type Executor struct {
	MaxRetries int
	BaseDelay  time.Duration
	RetryIf    func(error) bool

	// Sleep is overridable in tests. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

func New(maxRetries int, retryIf func(error) bool) *Executor {
	return &Executor{
		MaxRetries: maxRetries,
		BaseDelay:  time.Second,
		RetryIf:    retryIf,
		Sleep:      time.Sleep,
	}
}

// Delay returns the pre-jitter delay for the given zero-based attempt.
func (e *Executor) Delay(attempt int) time.Duration {
	return (1 << attempt) * e.BaseDelay
}

// Execute runs op, retrying with 2^attempt backoff plus up to one
// BaseDelay of random jitter between attempts.
func Execute[T any](e *Executor, op func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < e.MaxRetries; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}
		if e.RetryIf == nil || !e.RetryIf(err) {
			return zero, err
		}

		lastErr = err
		jitter := time.Duration(rand.Int63n(int64(e.BaseDelay)))
		e.Sleep(e.Delay(attempt) + jitter)
	}

	return zero, &RetriesExhaustedError{Attempts: e.MaxRetries, Last: lastErr}
}
