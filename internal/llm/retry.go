package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// permanent marks an error that another attempt cannot fix.
type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// withRetries runs call up to maxRetries+1 times with 100ms doubling backoff. Context expiry is
// reported as ErrTimeout, exhaustion as ErrRequestFailed.
func withRetries(ctx context.Context, maxRetries int, call func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrTimeout
			}
		}

		text, err := call(ctx)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ErrTimeout
		}
		lastErr = err

		var p permanent
		if errors.As(err, &p) {
			break
		}
	}
	return "", fmt.Errorf("%w: %v", ErrRequestFailed, lastErr)
}
