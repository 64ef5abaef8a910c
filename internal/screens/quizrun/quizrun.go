// Package quizrun is the timed quiz screen.
package quizrun

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/docquiz/internal/router"
	"github.com/abhisek/docquiz/internal/screen"
	"github.com/abhisek/docquiz/internal/screens"
	"github.com/abhisek/docquiz/internal/screens/results"
	"github.com/abhisek/docquiz/internal/session"
	"github.com/abhisek/docquiz/internal/ui/components"
	"github.com/abhisek/docquiz/internal/ui/layout"
	"github.com/abhisek/docquiz/internal/ui/theme"
)

// lowTime is when the countdown turns red.
const lowTime = 60

// stateMsg delivers a snapshot pushed by the session.
type stateMsg session.State

// Screen drives a session.Controller from the keyboard.
type Screen struct {
	env     *screens.Env
	ctrl    *session.Controller
	changes chan session.State

	state      session.State
	mc         components.MultiChoice
	confirming bool
	errMsg     string
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)
var _ screen.StatusProvider = (*Screen)(nil)

// New creates the screen for a running session whose snapshots arrive on
// changes.
func New(env *screens.Env, ctrl *session.Controller, changes chan session.State) *Screen {
	s := &Screen{env: env, ctrl: ctrl, changes: changes}
	s.apply(ctrl.State())
	return s
}

func (s *Screen) Init() tea.Cmd {
	if s.state.Submitted() {
		return s.finish()
	}
	return waitForChange(s.changes)
}

func waitForChange(ch <-chan session.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg(st)
	}
}

func (s *Screen) Title() string {
	return fmt.Sprintf("Question %d of %d", s.state.CurrentIndex+1, s.state.QuestionSet.Len())
}

// Status renders the countdown.
func (s *Screen) Status() string {
	style := theme.Timer
	if s.state.RemainingSeconds <= lowTime {
		style = theme.TimerLow
	}
	return style.Render("⏱ " + layout.FormatClock(s.state.RemainingSeconds))
}

func (s *Screen) KeyHints() []layout.KeyHint {
	if s.confirming {
		return []layout.KeyHint{
			{Key: "Y", Description: "Submit"},
			{Key: "N", Description: "Keep going"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Choose"},
		{Key: "Enter", Description: "Answer"},
		{Key: "←→", Description: "Prev/Next"},
		{Key: "S", Description: "Submit"},
	}
}

// apply adopts a snapshot, keeping the cursor when the question is
// unchanged.
func (s *Screen) apply(st session.State) {
	sameQuestion := s.state.QuestionSet != nil && st.CurrentIndex == s.state.CurrentIndex
	s.state = st
	cursor := s.mc.Cursor
	s.mc = components.NewMultiChoice(st.CurrentQuestion(), st.Answers[st.CurrentIndex])
	if sameQuestion {
		s.mc.Cursor = cursor
	}
}

// State returns the last snapshot shown.
func (s *Screen) State() session.State { return s.state }

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		s.apply(session.State(msg))
		if s.state.Submitted() {
			return s, s.finish()
		}
		return s, waitForChange(s.changes)

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *Screen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()
	if s.confirming {
		switch key {
		case "y", "Y", "enter":
			s.confirming = false
			return s.do(func() (session.State, error) { return s.ctrl.Submit(s.env.Ctx) })
		case "n", "N", "esc":
			s.confirming = false
		}
		return s, nil
	}

	s.errMsg = ""
	switch key {
	case "enter", "space", " ":
		return s.do(func() (session.State, error) { return s.ctrl.SelectAnswer(s.env.Ctx, s.mc.Cursor) })
	case "right", "l", "n", "tab":
		return s.do(s.ctrl.GoNext)
	case "left", "h", "p", "shift+tab":
		return s.do(s.ctrl.GoPrevious)
	case "s", "S":
		if s.state.IsLast() && s.state.Answers.AnsweredCount() == len(s.state.Answers) {
			return s.do(func() (session.State, error) { return s.ctrl.SubmitFromLast(s.env.Ctx) })
		}
		s.confirming = true
		return s, nil
	}

	var cmd tea.Cmd
	s.mc, cmd = s.mc.Update(msg)
	return s, cmd
}

// do runs a controller operation and adopts its resulting state.
func (s *Screen) do(op func() (session.State, error)) (screen.Screen, tea.Cmd) {
	st, err := op()
	if err != nil {
		s.env.Log.Debug().Err(err).Msg("session operation")
		s.errMsg = screens.Describe(err)
	}
	s.apply(st)
	if s.state.Submitted() {
		return s, s.finish()
	}
	return s, nil
}

// finish hands the submitted session to the results screen.
func (s *Screen) finish() tea.Cmd {
	s.ctrl.Close()
	return router.Reset(results.New(s.env, s.state))
}

func (s *Screen) View(width, height int) string {
	var b strings.Builder

	answered := s.state.Answers.AnsweredCount()
	total := s.state.QuestionSet.Len()
	info := lipgloss.NewStyle().Foreground(theme.TextDim).
		Render(fmt.Sprintf("  %s  ·  answered %d/%d", s.state.QuestionSet.Difficulty, answered, total))
	b.WriteString(info)
	b.WriteString("\n  ")
	b.WriteString(components.CountdownBar(s.state.RemainingSeconds, s.state.QuestionSet.Difficulty.Seconds(), min(width-6, 60)).View())
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-4, 0))))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(s.mc.View(width)))

	if s.confirming {
		unanswered := total - answered
		prompt := "Submit the quiz now?"
		if unanswered > 0 {
			prompt = fmt.Sprintf("Submit with %d unanswered question(s)?", unanswered)
		}
		b.WriteString("\n")
		b.WriteString(layout.Centered(width, theme.Chosen, prompt+"  (y/n)"))
	}
	if s.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(layout.Centered(width, theme.ErrorText, s.errMsg))
	}
	return b.String()
}
