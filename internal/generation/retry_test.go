package generation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/abhisek/docquiz/internal/llm"
	"github.com/abhisek/docquiz/internal/quiz"
)

func retryConfig() llm.RetryConfig {
	return llm.RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func down() llm.MockResponse {
	return llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("down")}}
}

func quizIn() QuizInput {
	return QuizInput{Document: pdf(), Difficulty: quiz.Medium}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(quizPayload)})
	g := WithRetry(New(mockConfig(), mock), retryConfig())

	if _, err := g.GenerateQuiz(context.Background(), quizIn()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	mock := llm.NewMockProvider(down(), llm.MockResponse{Content: json.RawMessage(quizPayload)})
	g := WithRetry(New(mockConfig(), mock), retryConfig())

	qs, err := g.GenerateQuiz(context.Background(), quizIn())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qs.Len() != 2 {
		t.Fatalf("expected 2 questions, got %d", qs.Len())
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.CallCount())
	}
}

func TestRetry_AllAttemptsFail(t *testing.T) {
	mock := llm.NewMockProvider(down(), down(), down())
	g := WithRetry(New(mockConfig(), mock), retryConfig())

	_, err := g.GenerateQuiz(context.Background(), quizIn())
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if mock.CallCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestRetry_NotRetried(t *testing.T) {
	tests := []struct {
		name string
		resp llm.MockResponse
		want error
	}{
		{
			name: "malformed output",
			resp: llm.MockResponse{Content: json.RawMessage(`{"questions":[]}`)},
			want: ErrMalformedOutput,
		},
		{
			name: "auth",
			resp: llm.MockResponse{Err: &llm.ErrAuth{Err: errors.New("403")}},
			want: ErrConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockProvider(tt.resp, llm.MockResponse{Content: json.RawMessage(quizPayload)})
			g := WithRetry(New(mockConfig(), mock), retryConfig())

			_, err := g.GenerateQuiz(context.Background(), quizIn())
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if mock.CallCount() != 1 {
				t.Fatalf("expected 1 call (no retry), got %d", mock.CallCount())
			}
		})
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	mock := llm.NewMockProvider(down(), down(), llm.MockResponse{Content: json.RawMessage(quizPayload)})
	g := WithRetry(New(mockConfig(), mock), llm.RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Hour,
		MaxWait:     time.Hour,
		Multiplier:  1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.GenerateQuiz(ctx, quizIn())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call before the wait was cut short, got %d", mock.CallCount())
	}
}

func TestRetry_RateLimitRespectsRetryAfter(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrRateLimit{RetryAfter: 1 * time.Millisecond, Err: errors.New("429")}},
		llm.MockResponse{Content: json.RawMessage(reportPayload)},
	)
	g := WithRetry(New(mockConfig(), mock), llm.RetryConfig{
		MaxAttempts: 2,
		InitialWait: time.Hour,
		MaxWait:     time.Hour,
		Multiplier:  1,
	})

	start := time.Now()
	if _, err := g.GenerateAnalysis(context.Background(), analysisInput(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > time.Minute {
		t.Fatal("RetryAfter was ignored")
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.CallCount())
	}
}

func TestWithRetry_DisabledReturnsInner(t *testing.T) {
	inner := New(mockConfig(), llm.NewMockProvider())
	if g := WithRetry(inner, llm.RetryConfig{MaxAttempts: 1}); g != Generator(inner) {
		t.Fatalf("expected the inner generator, got %T", g)
	}
}
