// Package httputil provides retry helpers for the kudsight HTTP client.
//
// [Retry] re-runs an operation while it fails with a [RetryableError]. The
// backend client wraps network failures and 5xx responses this way for
// reads (listing, dataset and overlay fetches, existence probes). Overlay
// submission is never retried: a failed flush is reported and the next edit
// schedules a fresh one.
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := http.Get(url)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    ...
//	})
//
// [DefaultPolicy]: 3 attempts, 1 second initial delay doubling each retry,
// capped at 10 seconds. A Retry-After header on 429 and 5xx responses
// replaces the backoff delay (see [RetryAfter]).
package httputil
