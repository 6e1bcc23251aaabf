package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseWait   = 1 * time.Second
	DefaultMaxWait    = 30 * time.Second
)

// Func represents a function that can be retried
type Func func() error

// Option configures retry behavior
type Option func(*settings)

type settings struct {
	maxRetries int
	baseWait   time.Duration
	maxWait    time.Duration
}

// WithMaxRetries sets the maximum number of attempts
func WithMaxRetries(n int) Option {
	return func(s *settings) {
		s.maxRetries = n
	}
}

// WithBaseWait sets the base wait duration used for exponential backoff
func WithBaseWait(d time.Duration) Option {
	return func(s *settings) {
		s.baseWait = d
	}
}

// WithMaxWait caps the backoff duration between attempts
func WithMaxWait(d time.Duration) Option {
	return func(s *settings) {
		s.maxWait = d
	}
}

// Do executes the given function with retries and exponential backoff with
// jitter. Errors wrapped with MarkPermanent stop retrying immediately and
// are returned unwrapped.
func Do(ctx context.Context, f Func, opts ...Option) error {
	s := &settings{
		maxRetries: DefaultMaxRetries,
		baseWait:   DefaultBaseWait,
		maxWait:    DefaultMaxWait,
	}
	for _, opt := range opts {
		opt(s)
	}

	var lastError error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(float64(s.baseWait) * math.Pow(2, float64(attempt-1)))
			if backoff > s.maxWait {
				backoff = s.maxWait
			}
			jitter := time.Duration(rand.Float64() * float64(backoff) * 0.1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}
		err := f()
		if err == nil {
			return nil
		}
		var p *permanentError
		if errors.As(err, &p) {
			return p.err
		}
		lastError = err
	}
	return lastError
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// MarkPermanent wraps an error so that Do stops retrying when it is seen.
func MarkPermanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether the error was wrapped with MarkPermanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
