package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Retrying retries a failing Analyzer with exponential backoff.
type Retrying struct {
	next     Analyzer
	attempts int
	base     time.Duration
	logger   *slog.Logger
}

// WithRetry wraps next so that each Analyze makes up to attempts tries,
// waiting base*2^n between them. attempts < 1 is treated as 1.
func WithRetry(next Analyzer, attempts int, base time.Duration) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{
		next:     next,
		attempts: attempts,
		base:     base,
		logger:   slog.Default(),
	}
}

func (r *Retrying) Analyze(ctx context.Context, hint Hint) (Result, error) {
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			backoff := r.base << (attempt - 1)
			r.logger.Warn("analysis failed, retrying", "kind", hint.Kind, "attempt", attempt, "backoff", backoff, "error", lastErr)
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return Result{}, ctx.Err()
			case <-timer.C:
			}
		}

		res, err := r.next.Analyze(ctx, hint)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return Result{}, err
		}
		lastErr = err
	}
	return Result{}, fmt.Errorf("analysis failed after %d attempts: %w", r.attempts, lastErr)
}
