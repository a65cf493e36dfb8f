package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"narrator/internal/config"
	"narrator/internal/logging"
	"narrator/internal/services"
)

// Sleeper waits between attempts. Tests inject a recorder.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy bounds how many times a provider call is attempted.
type Policy struct {
	MaxAttempts int
	Delays      []time.Duration
	Sleep       Sleeper
	Logger      *slog.Logger
}

// DefaultPolicy returns three attempts with 5s and 15s waits.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delays:      []time.Duration{5 * time.Second, 15 * time.Second, 30 * time.Second},
		Sleep:       SleepContext,
	}
}

// PolicyFromConfig builds a policy from the retry section.
func PolicyFromConfig(cfg *config.Config, logger *slog.Logger) Policy {
	policy := DefaultPolicy()
	if cfg != nil {
		policy.MaxAttempts = cfg.Retry.MaxAttempts
		policy.Delays = cfg.RetryDelays()
	}
	policy.Logger = logger
	return policy
}

// Do runs fn until it succeeds, fails fatally or exhausts the attempt budget.
// The delay before attempt n (n >= 2) is Delays[n-2], clamped to the last entry.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	logger := logging.WithContext(ctx, p.Logger)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, p.delayBefore(attempt)); err != nil {
				return err
			}
		}
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if !services.IsRetryable(err) {
			return err
		}
		lastErr = err
		if attempt < attempts {
			logger.Warn("provider attempt failed; retrying",
				logging.String("operation", op),
				logging.Int(logging.FieldAttempt, attempt),
				logging.Int("max_attempts", attempts),
				logging.Duration("next_delay", p.delayBefore(attempt+1)),
				logging.Error(err),
			)
		}
	}
	return fmt.Errorf("%s: %w: gave up after %d attempts: %w", op, services.ErrTransient, attempts, lastErr)
}

func (p Policy) delayBefore(attempt int) time.Duration {
	if len(p.Delays) == 0 || attempt < 2 {
		return 0
	}
	idx := attempt - 2
	if idx >= len(p.Delays) {
		idx = len(p.Delays) - 1
	}
	return p.Delays[idx]
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
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
