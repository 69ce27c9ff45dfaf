package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Config struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool // delay grows linearly with the attempt number
}

// permanentError stops Do from trying again.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying (bad request, auth failure).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, the attempts run
// out or ctx is done.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == cfg.MaxAttempts {
			return fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, err)
		}

		delay := cfg.Delay
		if cfg.Backoff {
			delay = time.Duration(attempt) * cfg.Delay
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
