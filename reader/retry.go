package reader

import (
	"context"
	"errors"
	"time"

	"keeperstats/config"
	"keeperstats/logger"
)

// Backoff bounds the retries of a flaky request.
type Backoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  int
}

// BackoffFromConfig converts reader.retry settings, filling zero values with
// conservative defaults.
func BackoffFromConfig(cfg config.RetryConfig) Backoff {
	b := Backoff{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
		Multiplier:  cfg.BackoffMultiplier,
	}
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = 1
	}
	if b.BaseDelay <= 0 {
		b.BaseDelay = time.Second
	}
	if b.MaxDelay <= 0 {
		b.MaxDelay = 30 * time.Second
	}
	if b.Multiplier <= 1 {
		b.Multiplier = 2
	}
	return b
}

// Delay returns the wait before the given retry, counted from 1.
func (b Backoff) Delay(retry int) time.Duration {
	d := b.BaseDelay
	for i := 1; i < retry; i++ {
		d *= time.Duration(b.Multiplier)
		if d >= b.MaxDelay {
			return b.MaxDelay
		}
	}
	if d > b.MaxDelay {
		return b.MaxDelay
	}
	return d
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retry runs fn until it succeeds, returns a permanent error, the context
// ends or the attempts run out. The last error is returned.
func Retry(ctx context.Context, b Backoff, operation string, fn func(ctx context.Context) error) error {
	log := logger.GetLogger().WithComponent("retry").WithFields(logger.Fields{"operation": operation})

	var err error
	for attempt := 1; attempt <= b.MaxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if IsPermanent(err) || ctx.Err() != nil || attempt == b.MaxAttempts {
			break
		}

		delay := b.Delay(attempt)
		log.WithError(err).WithFields(logger.Fields{
			"attempt":  attempt,
			"delay_ms": delay.Milliseconds(),
		}).Warn("request failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
