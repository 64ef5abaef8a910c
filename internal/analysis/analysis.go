// Package analysis scores a finished quiz and asks the model for a
// remediation report.
package analysis

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/abhisek/docquiz/internal/generation"
	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/scoring"
)

// SessionSource supplies the stored quiz for AnalyzeStored.
type SessionSource interface {
	LoadQuiz(ctx context.Context) (*quiz.QuestionSet, quiz.AnswerTrace, error)
}

// Result pairs the model's report with the locally computed score.
type Result struct {
	Report  *quiz.AnalysisReport `json:"analysis"`
	Summary scoring.Summary      `json:"summary"`
}

// Pipeline composes scoring with report generation.
type Pipeline struct {
	gen     generation.Generator
	session SessionSource
	log     zerolog.Logger
}

// New returns a Pipeline. session may be nil when only Analyze is used.
func New(gen generation.Generator, session SessionSource, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		gen:     gen,
		session: session,
		log:     log.With().Str("component", "analysis").Logger(),
	}
}

// Analyze scores answers against qs and requests a report. On failure no
// partial result is returned.
func (p *Pipeline) Analyze(ctx context.Context, qs *quiz.QuestionSet, answers quiz.AnswerTrace) (*Result, error) {
	summary, err := scoring.Score(qs, answers)
	if err != nil {
		return nil, err
	}
	records, err := scoring.Records(qs, answers)
	if err != nil {
		return nil, err
	}

	report, err := p.gen.GenerateAnalysis(ctx, generation.AnalysisInput{
		QuestionSet: qs,
		Answers:     answers,
		Summary:     summary,
		Records:     records,
	})
	if err != nil {
		p.log.Warn().Err(err).Int("score", summary.ScorePercent).Msg("analysis failed")
		return nil, fmt.Errorf("analyze results: %w", err)
	}

	p.log.Info().
		Int("score", summary.ScorePercent).
		Int("correct", summary.CorrectCount).
		Int("total", summary.TotalQuestions).
		Msg("analysis completed")
	return &Result{Report: report, Summary: summary}, nil
}

// AnalyzeStored analyzes the quiz held in session storage.
func (p *Pipeline) AnalyzeStored(ctx context.Context) (*Result, error) {
	if p.session == nil {
		return nil, fmt.Errorf("analyze stored session: no session source")
	}
	qs, answers, err := p.session.LoadQuiz(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return p.Analyze(ctx, qs, answers)
}
