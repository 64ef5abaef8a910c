// Package screens holds what the individual quiz screens share: their
// dependencies, cross-screen messages and small view helpers.
package screens

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/rs/zerolog"

	"github.com/abhisek/docquiz/internal/analysis"
	"github.com/abhisek/docquiz/internal/generation"
	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/session"
	"github.com/abhisek/docquiz/internal/ui/theme"
)

// Env carries the services the screens drive.
type Env struct {
	Ctx         context.Context
	Generator   generation.Generator
	Pipeline    *analysis.Pipeline
	Persistence *session.Persistence

	// Scheduler drives the countdown; nil uses the wall clock.
	Scheduler session.Scheduler

	Log zerolog.Logger
}

// SessionOptions returns the controller options for a session whose
// changes are delivered on changes.
func (e *Env) SessionOptions(changes chan session.State) []session.Option {
	opts := []session.Option{
		session.WithLogger(e.Log),
		session.OnChange(func(st session.State) {
			select {
			case changes <- st:
			default:
				// Drop the oldest snapshot; the newest is what matters.
				select {
				case <-changes:
				default:
				}
				select {
				case changes <- st:
				default:
				}
			}
		}),
	}
	if e.Scheduler != nil {
		opts = append(opts, session.WithScheduler(e.Scheduler))
	}
	if e.Persistence != nil {
		opts = append(opts, session.WithPersistence(e.Persistence))
	}
	return opts
}

// NewChanges returns a channel sized for session snapshots.
func NewChanges() chan session.State {
	return make(chan session.State, 8)
}

// StartOverMsg asks the app to return to the upload screen.
type StartOverMsg struct {
	Difficulty quiz.Difficulty
}

// StartOver emits StartOverMsg.
func StartOver(d quiz.Difficulty) tea.Cmd {
	return func() tea.Msg { return StartOverMsg{Difficulty: d} }
}

// SpinnerTickMsg advances loading spinners.
type SpinnerTickMsg time.Time

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// SpinnerTick schedules the next spinner frame.
func SpinnerTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return SpinnerTickMsg(t)
	})
}

// SpinnerFrame returns the glyph for frame n.
func SpinnerFrame(n int) string {
	return spinnerFrames[n%len(spinnerFrames)]
}

// RenderLoading renders a centered spinner line.
func RenderLoading(width, frame int, msg string) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render(fmt.Sprintf("\n\n\n%s  %s", SpinnerFrame(frame), msg))
}

// RenderError renders a centered error with a recovery hint.
func RenderError(width int, err, hint string) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Error).
		Render(fmt.Sprintf("\n\n\nError: %s\n\n", err)) +
		lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.TextDim).
			Render(hint)
}

// Describe turns a generation or session failure into a short message
// for the user.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, generation.ErrConfiguration):
		return "no LLM provider is configured (set an API key, see `docquiz llm config`)"
	case errors.Is(err, generation.ErrMalformedOutput):
		return "the model returned an invalid response, please try again"
	case errors.Is(err, generation.ErrServiceUnavailable):
		return "the model is unavailable right now, please try again"
	case errors.Is(err, session.ErrInvalidSessionData):
		return session.ErrInvalidSessionData.Error()
	}
	return err.Error()
}
