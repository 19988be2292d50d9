// Package retry provides exponential backoff retries for operations that
// happen before a reconciliation cycle starts, such as the first ping of the
// backing store. Nothing inside a cycle is retried.
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//	    return st.Ping(ctx)
//	}, &retry.Config{MaxAttempts: 3, Backoff: retry.DefaultExponentialBackoff()})
package retry
