// Package app is the terminal client shell: it routes between screens
// and draws the frame around them.
package app

import (
	"context"
	"fmt"
	"os"
	"slices"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/router"
	"github.com/abhisek/docquiz/internal/screen"
	"github.com/abhisek/docquiz/internal/screens"
	"github.com/abhisek/docquiz/internal/screens/generating"
	"github.com/abhisek/docquiz/internal/screens/quizrun"
	"github.com/abhisek/docquiz/internal/screens/setup"
	"github.com/abhisek/docquiz/internal/session"
	"github.com/abhisek/docquiz/internal/ui/layout"
)

// Options selects the first screen.
type Options struct {
	Env *screens.Env

	// Path and Document start generation immediately when Document is set;
	// otherwise Path prefills the setup screen.
	Path       string
	Document   []byte
	Difficulty quiz.Difficulty

	// Resume continues the stored session instead.
	Resume bool
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	env    *screens.Env
	router *router.Router
	width  int
	height int
}

// NewAppModel builds the model and its first screen.
func NewAppModel(opts Options) (AppModel, error) {
	first, err := initialScreen(opts)
	if err != nil {
		return AppModel{}, err
	}
	return AppModel{env: opts.Env, router: router.New(first)}, nil
}

func initialScreen(opts Options) (screen.Screen, error) {
	env := opts.Env
	switch {
	case opts.Resume:
		if env.Persistence == nil {
			return nil, fmt.Errorf("resume: no session storage configured")
		}
		changes := screens.NewChanges()
		ctrl, err := session.Resume(env.Ctx, env.Persistence, env.SessionOptions(changes)...)
		if err != nil {
			return nil, fmt.Errorf("resume: %w", err)
		}
		return quizrun.New(env, ctrl, changes), nil
	case len(opts.Document) > 0:
		return generating.New(env, opts.Path, opts.Document, opts.Difficulty), nil
	default:
		return setup.New(env, opts.Path, opts.Difficulty), nil
	}
}

func (m AppModel) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case screens.StartOverMsg:
		return m, m.router.Reset(setup.New(m.env, "", msg.Difficulty))
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title, status := "", ""
	var hints []layout.KeyHint
	if active != nil {
		title = active.Title()
		if sp, ok := active.(screen.StatusProvider); ok {
			status = sp.Status()
		}
		if hp, ok := active.(screen.KeyHintProvider); ok {
			hints = hp.KeyHints()
		}
	}
	if !slices.ContainsFunc(hints, func(h layout.KeyHint) bool { return h.Key == "Ctrl+C" }) {
		hints = append(hints, layout.KeyHint{Key: "Ctrl+C", Description: "Quit"})
	}

	header := layout.RenderHeader(title, status, m.width)
	footer := layout.RenderFooter(hints, m.width)

	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	content := m.router.View(m.width, contentHeight)

	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

// Run starts the Bubble Tea program. An unfinished session is kept in
// storage on quit and can be resumed.
func Run(ctx context.Context, opts Options) error {
	if opts.Env.Ctx == nil {
		opts.Env.Ctx = ctx
	}
	m, err := NewAppModel(opts)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
