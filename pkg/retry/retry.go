// Package retry runs an operation until it succeeds with exponential backoff.
// The storage, bridge and feed connections use it while their servers come up.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

var (
	ErrExhausted = errors.New("retries exhausted")
	ErrCanceled  = errors.New("context canceled during retry")
)

// Config contains backoff configuration
type Config struct {
	// MaxRetries is the number of attempts after the first one
	MaxRetries int
	// InitialInterval is the wait before the first retry (default: 500ms)
	InitialInterval time.Duration
	// MaxInterval caps the wait between attempts (default: 10s)
	MaxInterval time.Duration
	// Multiplier grows the interval after each retry (default: 2.0)
	Multiplier float64
	// JitterFactor adds up to ±factor of random spread (default: 0.1)
	JitterFactor float64
}

// DefaultConfig returns the backoff used for startup connections:
// 500ms, 1s, 2s
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// Constant returns a config that waits the same interval between attempts
func Constant(maxRetries int, interval time.Duration) *Config {
	return &Config{
		MaxRetries:      maxRetries,
		InitialInterval: interval,
		MaxInterval:     interval,
		Multiplier:      1,
	}
}

// Operation is one attempt
type Operation func(ctx context.Context) error

// PermanentError stops the retry loop immediately
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Notify is called before each wait
type Notify func(attempt int, err error, wait time.Duration)

// Retrier handles retry logic with exponential backoff
type Retrier struct {
	config *Config
	notify Notify
}

// New creates a Retrier, filling zero values with defaults
func New(config *Config) *Retrier {
	if config == nil {
		config = DefaultConfig()
	}
	c := *config
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 500 * time.Millisecond
	}
	if c.MaxInterval < c.InitialInterval {
		c.MaxInterval = c.InitialInterval
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2.0
	}
	if c.JitterFactor < 0 {
		c.JitterFactor = 0
	}
	if c.JitterFactor > 1 {
		c.JitterFactor = 1
	}
	return &Retrier{config: &c}
}

// OnRetry registers fn to observe failed attempts
func (r *Retrier) OnRetry(fn Notify) *Retrier {
	r.notify = fn
	return r
}

// Do runs op until it returns nil, a permanent error, or the attempts run out.
// The returned error wraps the last attempt's error.
func (r *Retrier) Do(ctx context.Context, op Operation) error {
	var lastErr error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := r.interval(attempt - 1)
			if r.notify != nil {
				r.notify(attempt, lastErr, wait)
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return joinLast(ErrCanceled, lastErr)
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return ErrCanceled
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		var perm *PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}
		lastErr = err
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, r.config.MaxRetries+1, lastErr)
}

func (r *Retrier) interval(retry int) time.Duration {
	d := float64(r.config.InitialInterval) * math.Pow(r.config.Multiplier, float64(retry))
	if r.config.JitterFactor > 0 {
		d += (rand.Float64()*2 - 1) * d * r.config.JitterFactor
	}
	if d > float64(r.config.MaxInterval) {
		d = float64(r.config.MaxInterval)
	}
	if d <= 0 {
		d = float64(r.config.InitialInterval)
	}
	return time.Duration(d)
}

func joinLast(sentinel, last error) error {
	if last == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, last)
}

// Do is a convenience wrapper around New(config).Do
func Do(ctx context.Context, config *Config, op Operation) error {
	return New(config).Do(ctx, op)
}
