package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// permanentError marks an error that retrying cannot fix
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

// retry runs fn up to attempts times with exponential back-off. It stops
// early on permanent errors and when ctx is done. The last error is returned
// unwrapped from its permanent marker.
func retry(ctx context.Context, attempts int, baseDelay time.Duration, op string, fn func() error) error {
	var lastErr error
	delay := baseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		if attempt < attempts {
			log.Printf("Retry: %s failed (attempt %d/%d): %v, retrying in %v", op, attempt, attempts, lastErr, delay)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s cancelled: %w", op, lastErr)
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return lastErr
}
