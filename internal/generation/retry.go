package generation

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/abhisek/docquiz/internal/llm"
	"github.com/abhisek/docquiz/internal/quiz"
)

// RetryGenerator is a decorator that retries ServiceUnavailable failures
// with exponential backoff and jitter. Malformed output, configuration
// errors and context errors are returned on first sight.
type RetryGenerator struct {
	inner  Generator
	config llm.RetryConfig
}

// WithRetry wraps a Generator with retry logic. MaxAttempts below 2
// returns gen unchanged.
func WithRetry(gen Generator, cfg llm.RetryConfig) Generator {
	if cfg.MaxAttempts < 2 {
		return gen
	}
	return &RetryGenerator{inner: gen, config: cfg}
}

func (r *RetryGenerator) GenerateQuiz(ctx context.Context, in QuizInput) (*quiz.QuestionSet, error) {
	return retry(ctx, r, func() (*quiz.QuestionSet, error) {
		return r.inner.GenerateQuiz(ctx, in)
	})
}

func (r *RetryGenerator) GenerateAnalysis(ctx context.Context, in AnalysisInput) (*quiz.AnalysisReport, error) {
	return retry(ctx, r, func() (*quiz.AnalysisReport, error) {
		return r.inner.GenerateAnalysis(ctx, in)
	})
}

func retry[T any](ctx context.Context, r *RetryGenerator, fn func() (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := range r.config.MaxAttempts {
		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !errors.Is(err, ErrServiceUnavailable) {
			return zero, err
		}

		// Last attempt: return without sleeping.
		if attempt == r.config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(r.backoff(attempt, err)):
		}
	}
	return zero, lastErr
}

// backoff computes the wait duration for the given attempt.
func (r *RetryGenerator) backoff(attempt int, err error) time.Duration {
	// Respect RetryAfter for rate limits.
	var rl *llm.ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	if wait > float64(r.config.MaxWait) {
		wait = float64(r.config.MaxWait)
	}

	// Add ±20% jitter.
	jitter := wait * 0.2 * (2*rand.Float64() - 1)
	wait += jitter

	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
