package schema

import (
	"encoding/json"
	"fmt"

	"github.com/abhisek/docquiz/internal/quiz"
)

// rawQuestion accepts integral numbers written as floats, e.g. 1.0, which
// the structural layer admits as integers.
type rawQuestion struct {
	Question      string      `json:"question"`
	Options       []string    `json:"options"`
	CorrectAnswer json.Number `json:"correctAnswer"`
	Explanation   string      `json:"explanation"`
}

type rawQuestionSet struct {
	Questions  []rawQuestion `json:"questions"`
	Difficulty string        `json:"difficulty"`
}

// DecodeQuestionSet validates raw against QuestionSetShape and converts it.
// The difficulty field is copied when present; callers that know the
// requested difficulty should overwrite it.
func DecodeQuestionSet(raw []byte) (*quiz.QuestionSet, error) {
	if _, err := Validate(raw, QuestionSetShape); err != nil {
		return nil, err
	}

	var r rawQuestionSet
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode question set: %w", err)
	}

	qs := &quiz.QuestionSet{
		Questions:  make([]quiz.Question, len(r.Questions)),
		Difficulty: quiz.Difficulty(r.Difficulty),
	}
	for i, q := range r.Questions {
		idx, ok := asInt(q.CorrectAnswer)
		if !ok || idx < 0 || idx >= len(q.Options) {
			return nil, &ValidationError{
				Shape:  QuestionSetShape.Name,
				Path:   fmt.Sprintf("questions.%d.correctAnswer", i),
				Reason: fmt.Sprintf("%s is not a usable option index", q.CorrectAnswer),
			}
		}
		qs.Questions[i] = quiz.Question{
			Text:          q.Question,
			Options:       q.Options,
			CorrectAnswer: idx,
			Explanation:   q.Explanation,
		}
	}
	return qs, nil
}

type reportEnvelope struct {
	PerformanceAnalysis quiz.AnalysisReport `json:"performanceAnalysis"`
}

// DecodeAnalysisReport validates raw against AnalysisReportShape and
// returns the unwrapped report.
func DecodeAnalysisReport(raw []byte) (*quiz.AnalysisReport, error) {
	if _, err := Validate(raw, AnalysisReportShape); err != nil {
		return nil, err
	}

	var env reportEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode analysis report: %w", err)
	}
	return &env.PerformanceAnalysis, nil
}
