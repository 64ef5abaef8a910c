// Package results shows the score, the model's study report and a
// per-question review.
package results

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/docquiz/internal/analysis"
	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/screen"
	"github.com/abhisek/docquiz/internal/screens"
	"github.com/abhisek/docquiz/internal/scoring"
	"github.com/abhisek/docquiz/internal/session"
	"github.com/abhisek/docquiz/internal/ui/components"
	"github.com/abhisek/docquiz/internal/ui/layout"
	"github.com/abhisek/docquiz/internal/ui/theme"
)

type tab int

const (
	tabReport tab = iota
	tabReview
)

// analysisMsg carries the analysis result.
type analysisMsg struct {
	Result *analysis.Result
	Err    error
}

// Screen presents a submitted session.
type Screen struct {
	env     *screens.Env
	state   session.State
	summary scoring.Summary
	scoreOK bool

	tab     tab
	review  int
	report  *quiz.AnalysisReport
	loading bool
	frame   int
	err     error
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates the results screen for a submitted session.
func New(env *screens.Env, st session.State) *Screen {
	s := &Screen{env: env, state: st}
	if sum, err := scoring.Score(st.QuestionSet, st.Answers); err == nil {
		s.summary, s.scoreOK = sum, true
	}
	return s
}

func (s *Screen) Init() tea.Cmd {
	return s.requestAnalysis()
}

func (s *Screen) requestAnalysis() tea.Cmd {
	if s.env.Pipeline == nil {
		return nil
	}
	s.loading = true
	s.err = nil
	env, qs, answers := s.env, s.state.QuestionSet, s.state.Answers
	return tea.Batch(func() tea.Msg {
		res, err := env.Pipeline.Analyze(env.Ctx, qs, answers)
		return analysisMsg{Result: res, Err: err}
	}, screens.SpinnerTick())
}

func (s *Screen) Title() string { return "Results" }

func (s *Screen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Tab", Description: "Report/Review"}}
	if s.tab == tabReview {
		hints = append(hints, layout.KeyHint{Key: "←→", Description: "Question"})
	}
	if s.err != nil {
		hints = append(hints, layout.KeyHint{Key: "R", Description: "Retry analysis"})
	}
	return append(hints,
		layout.KeyHint{Key: "N", Description: "New quiz"},
		layout.KeyHint{Key: "Ctrl+C", Description: "Quit"},
	)
}

// Report returns the analysis once it has arrived.
func (s *Screen) Report() *quiz.AnalysisReport { return s.report }

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case screens.SpinnerTickMsg:
		if !s.loading {
			return s, nil
		}
		s.frame++
		return s, screens.SpinnerTick()

	case analysisMsg:
		s.loading = false
		if msg.Err != nil {
			s.err = msg.Err
			s.env.Log.Warn().Err(msg.Err).Msg("analysis failed")
			return s, nil
		}
		s.report = msg.Result.Report
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "shift+tab":
			if s.tab == tabReport {
				s.tab = tabReview
			} else {
				s.tab = tabReport
			}
		case "right", "l":
			if s.tab == tabReview && s.review < s.state.QuestionSet.Len()-1 {
				s.review++
			}
		case "left", "h":
			if s.tab == tabReview && s.review > 0 {
				s.review--
			}
		case "r", "R":
			if s.err != nil && !s.loading {
				return s, s.requestAnalysis()
			}
		case "n", "N":
			return s, screens.StartOver(s.state.QuestionSet.Difficulty)
		}
	}
	return s, nil
}

func (s *Screen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(s.renderScore(width))
	b.WriteString("\n\n")

	if s.tab == tabReview {
		b.WriteString(s.renderReview(width))
	} else {
		b.WriteString(s.renderReport(width))
	}
	return b.String()
}

func (s *Screen) renderScore(width int) string {
	if !s.scoreOK {
		return layout.Centered(width, theme.ErrorText, "This attempt could not be scored.")
	}
	style := theme.Correct
	if s.summary.ScorePercent < 50 {
		style = theme.Incorrect
	}
	line := style.Render(fmt.Sprintf("%d%%", s.summary.ScorePercent)) +
		lipgloss.NewStyle().Foreground(theme.Text).Render(
			fmt.Sprintf("   %d of %d correct", s.summary.CorrectCount, s.summary.TotalQuestions))
	if s.summary.UnansweredCount > 0 {
		line += theme.Hint.Render(fmt.Sprintf("   %d unanswered", s.summary.UnansweredCount))
	}
	if s.state.SubmitReason == session.ReasonTimeout {
		line += theme.Hint.Render("   (time ran out)")
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, line)
}

func (s *Screen) renderReport(width int) string {
	switch {
	case s.loading:
		return screens.RenderLoading(width, s.frame, "Analyzing your answers...")
	case s.err != nil:
		return screens.RenderError(width, screens.Describe(s.err), "Press R to retry. Your score above is final.")
	case s.report == nil:
		return ""
	}

	r := s.report
	var b strings.Builder
	b.WriteString(theme.Heading.Render("Overall understanding: "))
	b.WriteString(theme.Body.Render(r.OverallUnderstanding))
	b.WriteString("\n")

	sections := []struct {
		title string
		items []string
	}{
		{"Knowledge gaps", r.KnowledgeGaps},
		{"Areas for improvement", r.AreasForImprovement},
		{"Suggested study topics", r.SuggestedStudyTopics},
		{"Suggested resources", r.SuggestedResources},
		{"Focus next on", r.NextFocusConcepts},
	}
	for _, sec := range sections {
		if len(sec.items) == 0 {
			continue
		}
		b.WriteString("\n")
		b.WriteString(theme.Heading.Render(sec.title))
		b.WriteString("\n")
		for _, item := range sec.items {
			b.WriteString(theme.Body.Render("  • " + item))
			b.WriteString("\n")
		}
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center,
		theme.Card.Width(min(width-8, 90)).Render(b.String()))
}

func (s *Screen) renderReview(width int) string {
	qs := s.state.QuestionSet
	mc := components.NewMultiChoice(qs.Questions[s.review], s.state.Answers[s.review])
	mc.Review = true

	verdict := theme.Incorrect.Render("Incorrect")
	switch {
	case !s.state.Answers.Answered(s.review):
		verdict = theme.Hint.Render("Not answered")
	case mc.IsCorrect():
		verdict = theme.Correct.Render("Correct")
	}
	head := fmt.Sprintf("Question %d of %d  ·  ", s.review+1, qs.Len()) + verdict

	body := head + "\n\n" + mc.View(min(width-8, 90))
	return lipgloss.PlaceHorizontal(width, lipgloss.Center,
		theme.Card.Width(min(width-8, 90)).Render(body))
}
