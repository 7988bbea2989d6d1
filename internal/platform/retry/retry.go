package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Backoff string

const (
	Linear      Backoff = "linear"
	Exponential Backoff = "exponential"
)

type Policy struct {
	MaxRetries int
	Delay      time.Duration
	Backoff    Backoff
	// ShouldRetry decides whether err at the given attempt (0-based) is retried.
	ShouldRetry func(err error, attempt int) bool
	// Sleep waits between attempts; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default is three retries starting at one second with exponential growth.
func Default() Policy {
	return Policy{MaxRetries: 3, Delay: time.Second, Backoff: Exponential}
}

// DelayFor returns the wait before retry number attempt+1.
func (p Policy) DelayFor(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	switch p.Backoff {
	case Linear:
		return p.Delay * time.Duration(attempt+1)
	default:
		return p.Delay * time.Duration(1<<uint(attempt))
	}
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Do runs op until it succeeds, the policy gives up, or ctx is done.
// The returned error is the last one op produced.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	var err error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if IsPermanent(err) || ctx.Err() != nil {
			return err
		}
		if p.ShouldRetry != nil && !p.ShouldRetry(err, attempt) {
			return err
		}
		if attempt == p.MaxRetries {
			break
		}
		if serr := sleep(ctx, p.DelayFor(attempt)); serr != nil {
			return fmt.Errorf("%w (retry aborted: %v)", err, serr)
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
