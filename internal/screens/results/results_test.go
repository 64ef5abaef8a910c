package results

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"

	"github.com/abhisek/docquiz/internal/analysis"
	"github.com/abhisek/docquiz/internal/generation"
	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/screens"
	"github.com/abhisek/docquiz/internal/session"
)

func submitted() session.State {
	return session.State{
		QuestionSet: &quiz.QuestionSet{
			Difficulty: quiz.Hard,
			Questions: []quiz.Question{
				{Text: "First?", Options: []string{"A", "B"}, CorrectAnswer: 1, Explanation: "B is right."},
				{Text: "Second?", Options: []string{"A", "B"}, CorrectAnswer: 0, Explanation: "A is right."},
			},
		},
		Answers:      quiz.AnswerTrace{1, quiz.Unanswered},
		Phase:        session.PhaseSubmitted,
		SubmitReason: session.ReasonTimeout,
	}
}

func newResults() *Screen {
	return New(&screens.Env{Ctx: context.Background(), Log: zerolog.Nop()}, submitted())
}

func TestScoreShown(t *testing.T) {
	s := newResults()
	view := s.View(100, 30)
	for _, want := range []string{"50%", "1 of 2 correct", "1 unanswered", "time ran out"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestAnalysisArrives(t *testing.T) {
	s := newResults()
	s.loading = true

	report := &quiz.AnalysisReport{
		OverallUnderstanding: "Intermediate",
		KnowledgeGaps:        []string{"vectors"},
	}
	s.Update(analysisMsg{Result: &analysis.Result{Report: report}})

	if s.Report() != report {
		t.Fatal("expected report to be kept")
	}
	if !strings.Contains(s.View(100, 30), "vectors") {
		t.Error("report sections not rendered")
	}
}

func TestAnalysisFailureOffersRetry(t *testing.T) {
	s := newResults()
	s.Update(analysisMsg{Err: &generation.Error{Code: generation.CodeServiceUnavailable, Err: errors.New("down")}})

	found := false
	for _, h := range s.KeyHints() {
		if h.Key == "R" {
			found = true
		}
	}
	if !found {
		t.Error("expected retry hint after failure")
	}
	if !strings.Contains(s.View(100, 30), "unavailable") {
		t.Error("expected a readable error")
	}
}

func TestReviewTab(t *testing.T) {
	s := newResults()
	s.Update(tea.KeyPressMsg{Code: tea.KeyTab})
	if !strings.Contains(s.View(100, 30), "Question 1 of 2") {
		t.Fatal("expected review of the first question")
	}
	s.Update(tea.KeyPressMsg{Code: tea.KeyRight})
	view := s.View(100, 30)
	if !strings.Contains(view, "Not answered") || !strings.Contains(view, "A is right.") {
		t.Errorf("unexpected review view:\n%s", view)
	}
}

func TestNewQuiz(t *testing.T) {
	s := newResults()
	_, cmd := s.Update(tea.KeyPressMsg{Code: 'n', Text: "n"})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(screens.StartOverMsg)
	if !ok || msg.Difficulty != quiz.Hard {
		t.Errorf("got %#v, want StartOverMsg with hard difficulty", msg)
	}
}
