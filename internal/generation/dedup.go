package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"golang.org/x/sync/singleflight"

	"github.com/abhisek/docquiz/internal/quiz"
)

// DedupGenerator collapses concurrent identical requests into one call.
// Every waiting caller receives the result of the call in flight. The
// shared call runs detached from any one caller's cancellation, bounded by
// the inner client's timeout; each caller stops waiting when its own
// context ends.
type DedupGenerator struct {
	inner Generator
	group singleflight.Group
}

// WithDedup wraps gen with duplicate suppression.
func WithDedup(gen Generator) *DedupGenerator {
	return &DedupGenerator{inner: gen}
}

func (d *DedupGenerator) GenerateQuiz(ctx context.Context, in QuizInput) (*quiz.QuestionSet, error) {
	sum := sha256.Sum256(in.Document)
	key := "quiz:" + hex.EncodeToString(sum[:]) + ":" + in.MIMEType + ":" + string(in.Difficulty)

	qs, err := share(ctx, &d.group, key, func(ctx context.Context) (*quiz.QuestionSet, error) {
		return d.inner.GenerateQuiz(ctx, in)
	})
	if err != nil {
		return nil, err
	}
	// Shared callers must not alias one another's question set.
	return qs.Clone(), nil
}

func (d *DedupGenerator) GenerateAnalysis(ctx context.Context, in AnalysisInput) (*quiz.AnalysisReport, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return d.inner.GenerateAnalysis(ctx, in)
	}
	sum := sha256.Sum256(data)
	key := "analysis:" + hex.EncodeToString(sum[:])

	report, err := share(ctx, &d.group, key, func(ctx context.Context) (*quiz.AnalysisReport, error) {
		return d.inner.GenerateAnalysis(ctx, in)
	})
	if err != nil {
		return nil, err
	}
	r := *report
	return &r, nil
}

func share[T any](ctx context.Context, group *singleflight.Group, key string, fn func(context.Context) (T, error)) (T, error) {
	detached := context.WithoutCancel(ctx)
	ch := group.DoChan(key, func() (any, error) {
		return fn(detached)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
