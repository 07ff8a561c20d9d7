package httputil

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// RetryableError marks a transient failure (network error, 5xx, 429) that
// [Policy.Do] may attempt again. After, when set, is the server's requested
// wait and replaces the backoff delay for the next attempt.
type RetryableError struct {
	Err   error
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Policy is an exponential backoff policy.
type Policy struct {
	// Attempts is the total number of calls, at least 1.
	Attempts int

	// Delay is the wait before the second attempt. It doubles after each
	// retry, up to MaxDelay when MaxDelay is positive.
	Delay    time.Duration
	MaxDelay time.Duration

	// OnRetry, if set, is called before each wait with the attempt that
	// failed (starting at 1) and its error.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy is 3 attempts starting at 1 second, capped at 10 seconds.
var DefaultPolicy = Policy{Attempts: 3, Delay: time.Second, MaxDelay: 10 * time.Second}

// Do calls fn until it succeeds, fails with an error that is not a
// [RetryableError], or the attempts are used up. The last error is returned;
// ctx.Err() is returned when ctx ends during a wait.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay

	var err error
	for i := 1; ; i++ {
		if err = fn(); err == nil {
			return nil
		}
		var re *RetryableError
		if !errors.As(err, &re) || i == attempts {
			return err
		}
		if p.OnRetry != nil {
			p.OnRetry(i, err)
		}

		wait := delay
		if re.After > 0 {
			wait = re.After
		}
		if p.MaxDelay > 0 {
			wait = min(wait, p.MaxDelay)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
}

// Retry runs fn with up to attempts calls, waiting delay before the first
// retry and doubling it after each.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	return Policy{Attempts: attempts, Delay: delay}.Do(ctx, fn)
}

// RetryWithBackoff runs fn with [DefaultPolicy].
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return DefaultPolicy.Do(ctx, fn)
}

// RetryAfter parses a Retry-After header given in seconds. Absent, malformed
// or HTTP-date values yield 0.
func RetryAfter(h http.Header) time.Duration {
	s, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || s <= 0 {
		return 0
	}
	return time.Duration(s) * time.Second
}
