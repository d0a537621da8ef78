// Package retry provides exponential backoff retry logic
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var (
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NonRetryableError wraps errors that should not be retried
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error to stop retrying immediately
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable checks if an error is marked as non-retryable
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}

// Config provides retry configuration
type Config struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`  // total attempts, at least 1
	InitialDelay time.Duration `mapstructure:"initial_delay"` // delay after the first failure
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
	AddJitter    bool          `mapstructure:"add_jitter"` // up to 25% extra delay
}

// DefaultConfig returns the default delivery retry policy
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// Validate checks the configuration for impossible values
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return errors.New("retry: MaxAttempts must be at least 1")
	}
	if c.InitialDelay < 0 || c.MaxDelay < 0 {
		return errors.New("retry: delays cannot be negative")
	}
	if c.Multiplier < 1 {
		return errors.New("retry: Multiplier must be >= 1")
	}
	if c.MaxDelay > 0 && c.MaxDelay < c.InitialDelay {
		return errors.New("retry: MaxDelay must be >= InitialDelay")
	}
	return nil
}

// Backoff returns the delay before attempt+1, without jitter. attempt is 1-based.
func (c Config) Backoff(attempt int) time.Duration {
	delay := float64(c.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= c.Multiplier
		if c.MaxDelay > 0 && delay >= float64(c.MaxDelay) {
			return c.MaxDelay
		}
	}
	if c.MaxDelay > 0 && delay > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(delay)
}

func (c Config) withJitter(delay time.Duration) time.Duration {
	if !c.AddJitter || delay < 4 {
		return delay
	}
	randMu.Lock()
	jitter := time.Duration(randSource.Int63n(int64(delay / 4)))
	randMu.Unlock()
	return delay + jitter
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempt
// budget is spent, or ctx is done. It returns the number of attempts made.
// The returned error is always the last error from fn.
func Do(ctx context.Context, cfg Config, fn func(attempt int) error) (int, error) {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if IsNonRetryable(err) || ctx.Err() != nil || attempt == cfg.MaxAttempts {
			return attempt, lastErr
		}

		timer := time.NewTimer(cfg.withJitter(cfg.Backoff(attempt)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, lastErr
		case <-timer.C:
		}
	}

	return cfg.MaxAttempts, lastErr
}
