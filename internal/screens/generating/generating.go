// Package generating shows progress while the question set is generated
// and starts the timed session once it arrives.
package generating

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/docquiz/internal/generation"
	"github.com/abhisek/docquiz/internal/llm"
	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/router"
	"github.com/abhisek/docquiz/internal/screen"
	"github.com/abhisek/docquiz/internal/screens"
	"github.com/abhisek/docquiz/internal/screens/quizrun"
	"github.com/abhisek/docquiz/internal/session"
	"github.com/abhisek/docquiz/internal/ui/layout"
)

// quizReadyMsg carries the generation result.
type quizReadyMsg struct {
	QuestionSet *quiz.QuestionSet
	Err         error
}

// Screen runs one generation request.
type Screen struct {
	env        *screens.Env
	name       string
	doc        []byte
	difficulty quiz.Difficulty

	cancel  context.CancelFunc
	frame   int
	running bool
	err     error
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates the screen for generating from doc.
func New(env *screens.Env, name string, doc []byte, d quiz.Difficulty) *Screen {
	return &Screen{env: env, name: name, doc: doc, difficulty: d}
}

func (s *Screen) Init() tea.Cmd {
	return tea.Batch(s.start(), screens.SpinnerTick())
}

func (s *Screen) Title() string { return "Generating" }

func (s *Screen) KeyHints() []layout.KeyHint {
	if s.err != nil {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Retry"},
			{Key: "Esc", Description: "Back"},
		}
	}
	return []layout.KeyHint{{Key: "Esc", Description: "Cancel"}}
}

// start clears any stored session and requests a question set.
func (s *Screen) start() tea.Cmd {
	ctx, cancel := context.WithCancel(s.env.Ctx)
	s.cancel = cancel
	s.running = true
	s.err = nil

	env, doc, d := s.env, s.doc, s.difficulty
	return func() tea.Msg {
		if env.Persistence != nil {
			if err := env.Persistence.Clear(ctx); err != nil {
				env.Log.Warn().Err(err).Msg("failed to clear previous session")
			}
		}
		qs, err := env.Generator.GenerateQuiz(ctx, generation.QuizInput{
			Document:   doc,
			MIMEType:   llm.MIMETypePDF,
			Difficulty: d,
		})
		return quizReadyMsg{QuestionSet: qs, Err: err}
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case screens.SpinnerTickMsg:
		if !s.running {
			return s, nil
		}
		s.frame++
		return s, screens.SpinnerTick()

	case quizReadyMsg:
		s.running = false
		s.cancel()
		if msg.Err != nil {
			s.err = msg.Err
			s.env.Log.Warn().Err(msg.Err).Msg("quiz generation failed")
			return s, nil
		}
		changes := screens.NewChanges()
		ctrl, err := session.New(s.env.Ctx, msg.QuestionSet, s.env.SessionOptions(changes)...)
		if err != nil {
			s.err = err
			return s, nil
		}
		return s, router.Reset(quizrun.New(s.env, ctrl, changes))

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if s.cancel != nil {
				s.cancel()
			}
			return s, router.Pop()
		case "enter":
			if s.err != nil {
				return s, tea.Batch(s.start(), screens.SpinnerTick())
			}
		}
	}
	return s, nil
}

func (s *Screen) View(width, height int) string {
	if s.err != nil {
		return screens.RenderError(width, screens.Describe(s.err), "Press Enter to retry or Esc to go back.")
	}
	return screens.RenderLoading(width, s.frame,
		fmt.Sprintf("Reading %s and writing %s questions...", s.name, s.difficulty))
}
