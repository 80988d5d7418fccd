// Package retry computes backoff delays for backend pushes and writes. The
// service core never retries; backends opt in by wrapping their network calls.
package retry

import (
	"context"
	"log/slog"
	"time"

	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/foundation/normalization"
	"git.home.luguber.info/inful/metricbus/internal/logfields"
)

// Mode enumerates supported backoff strategies.
type Mode string

const (
	ModeFixed       Mode = "fixed"
	ModeLinear      Mode = "linear"
	ModeExponential Mode = "exponential"
)

var modeNormalizer = normalization.NewNormalizer("retry backoff", map[string]Mode{
	"fixed":       ModeFixed,
	"linear":      ModeLinear,
	"exponential": ModeExponential,
}, ModeLinear)

// ParseMode converts configuration input into a Mode. Empty input yields linear.
func ParseMode(raw string) (Mode, error) {
	return modeNormalizer.NormalizeWithError(raw)
}

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode       Mode          // fixed|linear|exponential
	Initial    time.Duration // base delay
	Max        time.Duration // cap for growth
	MaxRetries int           // maximum retry attempts after the first failure
}

// DefaultPolicy returns linear backoff, 1s initial, 30s cap, 2 retries.
func DefaultPolicy() Policy {
	return Policy{Mode: ModeLinear, Initial: time.Second, Max: 30 * time.Second, MaxRetries: 2}
}

// NoRetry returns a policy that gives up after the first failure.
func NoRetry() Policy {
	p := DefaultPolicy()
	p.MaxRetries = 0
	return p
}

// NewPolicy builds a policy from raw config fields; zero/invalid values fall back to defaults.
func NewPolicy(mode Mode, initial, maxDuration time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	switch mode {
	case ModeFixed, ModeLinear, ModeExponential:
		p.Mode = mode
	default:
		// unknown -> keep default
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the backoff delay for the given retry attempt number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case ModeFixed:
		return p.Initial
	case ModeExponential:
		if retryCount > 30 {
			return p.Max
		}
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	default: // linear
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return derrors.ValidationError("retry initial delay must be >0").Build()
	}
	if p.Max <= 0 {
		return derrors.ValidationError("retry max delay must be >0").Build()
	}
	if p.MaxRetries < 0 {
		return derrors.ValidationError("retry max retries cannot be negative").Build()
	}
	return nil
}

// Do runs op until it succeeds, the retries are used up, or ctx ends. Errors
// classified as non-retryable stop immediately. The last error is returned.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := p.Delay(attempt)
			slog.Debug("Retrying after backoff", slog.Int("attempt", attempt), logfields.Delay(delay), logfields.Error(err))
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}
		if err = op(ctx); err == nil {
			return nil
		}
		if !retryable(err) || attempt >= p.MaxRetries {
			return err
		}
	}
}

func retryable(err error) bool {
	ce, ok := derrors.AsClassified(err)
	if !ok {
		return true
	}
	return ce.CanRetry()
}
