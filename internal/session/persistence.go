package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/schema"
	"github.com/abhisek/docquiz/internal/store"
)

// Keys under which a session is stored.
const (
	KeyQuizData         = "quizData"
	KeyUserAnswers      = "userAnswers"
	KeyDifficulty       = "difficulty"
	KeyRemainingSeconds = "remainingSeconds"
)

// Persistence saves and restores one session through a key-value store.
type Persistence struct {
	kv store.KV
}

// NewPersistence wraps kv.
func NewPersistence(kv store.KV) *Persistence {
	return &Persistence{kv: kv}
}

// Saved is a session as read back from storage.
type Saved struct {
	QuestionSet      *quiz.QuestionSet
	Answers          quiz.AnswerTrace
	RemainingSeconds int
}

// Load reads the stored session. Stored content is untrusted: the question
// set is revalidated and the answer trace must line up with it.
func (p *Persistence) Load(ctx context.Context) (*Saved, error) {
	rawQS, err := p.get(ctx, KeyQuizData)
	if err != nil {
		return nil, err
	}
	qs, err := schema.DecodeQuestionSet([]byte(rawQS))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSessionData, KeyQuizData, err)
	}

	if d, ok, err := p.kv.Get(ctx, KeyDifficulty); err != nil {
		return nil, fmt.Errorf("load %s: %w", KeyDifficulty, err)
	} else if ok {
		diff, perr := quiz.ParseDifficulty(d)
		if perr != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSessionData, KeyDifficulty, perr)
		}
		qs.Difficulty = diff
	}
	if !qs.Difficulty.Valid() {
		qs.Difficulty = quiz.Medium
	}

	rawAnswers, err := p.get(ctx, KeyUserAnswers)
	if err != nil {
		return nil, err
	}
	var answers quiz.AnswerTrace
	if err := json.Unmarshal([]byte(rawAnswers), &answers); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSessionData, KeyUserAnswers, err)
	}
	if len(answers) != qs.Len() {
		return nil, fmt.Errorf("%w: %d answers for %d questions", ErrInvalidSessionData, len(answers), qs.Len())
	}
	for i, a := range answers {
		if a != quiz.Unanswered && a >= len(qs.Questions[i].Options) {
			return nil, fmt.Errorf("%w: answer %d selects option %d of %d", ErrInvalidSessionData, i, a, len(qs.Questions[i].Options))
		}
	}

	remaining := qs.Difficulty.Seconds()
	if r, ok, err := p.kv.Get(ctx, KeyRemainingSeconds); err != nil {
		return nil, fmt.Errorf("load %s: %w", KeyRemainingSeconds, err)
	} else if ok {
		n, perr := strconv.Atoi(r)
		if perr != nil || n < 0 {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidSessionData, KeyRemainingSeconds, r)
		}
		remaining = min(n, remaining)
	}

	return &Saved{QuestionSet: qs, Answers: answers, RemainingSeconds: remaining}, nil
}

// LoadQuiz reads only the question set and answer trace, which is all the
// analysis step needs.
func (p *Persistence) LoadQuiz(ctx context.Context) (*quiz.QuestionSet, quiz.AnswerTrace, error) {
	s, err := p.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s.QuestionSet, s.Answers, nil
}

// SaveQuestionSet stores qs and its difficulty.
func (p *Persistence) SaveQuestionSet(ctx context.Context, qs *quiz.QuestionSet) error {
	data, err := json.Marshal(qs)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyQuizData, err)
	}
	if err := p.kv.Set(ctx, KeyQuizData, string(data)); err != nil {
		return fmt.Errorf("save %s: %w", KeyQuizData, err)
	}
	if err := p.kv.Set(ctx, KeyDifficulty, qs.Difficulty.String()); err != nil {
		return fmt.Errorf("save %s: %w", KeyDifficulty, err)
	}
	return nil
}

// SaveAnswers stores the answer trace.
func (p *Persistence) SaveAnswers(ctx context.Context, answers quiz.AnswerTrace) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyUserAnswers, err)
	}
	if err := p.kv.Set(ctx, KeyUserAnswers, string(data)); err != nil {
		return fmt.Errorf("save %s: %w", KeyUserAnswers, err)
	}
	return nil
}

// SaveRemaining stores the countdown.
func (p *Persistence) SaveRemaining(ctx context.Context, seconds int) error {
	if err := p.kv.Set(ctx, KeyRemainingSeconds, strconv.Itoa(seconds)); err != nil {
		return fmt.Errorf("save %s: %w", KeyRemainingSeconds, err)
	}
	return nil
}

// Clear removes every stored session key.
func (p *Persistence) Clear(ctx context.Context) error {
	if err := p.kv.Delete(ctx, KeyQuizData, KeyUserAnswers, KeyDifficulty, KeyRemainingSeconds); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (p *Persistence) get(ctx context.Context, key string) (string, error) {
	v, ok, err := p.kv.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return "", fmt.Errorf("%s: %w", key, ErrMissingSessionData)
	}
	return v, nil
}
