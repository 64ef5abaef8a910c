// Package scoring computes quiz results from an answer trace.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/abhisek/docquiz/internal/quiz"
)

// ErrInvalidTrace is returned when a trace does not line up with its
// question set.
var ErrInvalidTrace = errors.New("invalid answer trace")

// Summary is the derived result of one attempt.
type Summary struct {
	TotalQuestions  int `json:"totalQuestions"`
	CorrectCount    int `json:"correctCount"`
	IncorrectCount  int `json:"incorrectCount"`
	UnansweredCount int `json:"unansweredCount"`
	ScorePercent    int `json:"score"`
}

// Score compares trace against the correct answers of qs. Unanswered
// slots count as neither correct nor incorrect. The percentage is rounded
// half away from zero.
func Score(qs *quiz.QuestionSet, trace quiz.AnswerTrace) (Summary, error) {
	if qs == nil || len(qs.Questions) == 0 {
		return Summary{}, fmt.Errorf("%w: empty question set", ErrInvalidTrace)
	}
	if len(trace) != len(qs.Questions) {
		return Summary{}, fmt.Errorf("%w: %d answers for %d questions", ErrInvalidTrace, len(trace), len(qs.Questions))
	}

	s := Summary{TotalQuestions: len(qs.Questions)}
	for i, q := range qs.Questions {
		switch a := trace[i]; {
		case a == quiz.Unanswered:
			s.UnansweredCount++
		case a == q.CorrectAnswer:
			s.CorrectCount++
		default:
			s.IncorrectCount++
		}
	}
	s.ScorePercent = Percent(s.CorrectCount, s.TotalQuestions)
	return s, nil
}

// Percent returns round(correct / total * 100), or 0 when total is 0.
func Percent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// IsCorrect reports whether slot i of trace holds the correct option.
func IsCorrect(qs *quiz.QuestionSet, trace quiz.AnswerTrace, i int) bool {
	return trace.Answered(i) && i < len(qs.Questions) && trace[i] == qs.Questions[i].CorrectAnswer
}

// Records builds the per-question outcome list sent for analysis.
func Records(qs *quiz.QuestionSet, trace quiz.AnswerTrace) ([]quiz.QuestionRecord, error) {
	if qs == nil || len(trace) != len(qs.Questions) {
		return nil, fmt.Errorf("%w: %d answers for %d questions", ErrInvalidTrace, len(trace), qs.Len())
	}
	out := make([]quiz.QuestionRecord, len(qs.Questions))
	for i, q := range qs.Questions {
		r := quiz.QuestionRecord{
			Question:      q.Text,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     IsCorrect(qs, trace, i),
		}
		if trace.Answered(i) {
			v := trace[i]
			r.UserAnswer = &v
		}
		out[i] = r
	}
	return out, nil
}
