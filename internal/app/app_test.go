package app

import (
	"context"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"

	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/screens"
	"github.com/abhisek/docquiz/internal/session"
	"github.com/abhisek/docquiz/internal/store"
	"github.com/abhisek/docquiz/internal/ui/layout"
)

func testEnv() *screens.Env {
	return &screens.Env{
		Ctx:         context.Background(),
		Persistence: session.NewPersistence(store.NewMemoryKV()),
		Scheduler:   session.NewManualClock(),
		Log:         zerolog.Nop(),
	}
}

func TestInitialScreen(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"setup", Options{}, "New Quiz"},
		{"document", Options{Path: "a.pdf", Document: []byte("%PDF-"), Difficulty: quiz.Easy}, "Generating"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Env = testEnv()
			m, err := NewAppModel(tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if got := m.router.Active().Title(); got != tt.want {
				t.Errorf("Title = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResume(t *testing.T) {
	env := testEnv()

	if _, err := NewAppModel(Options{Env: env, Resume: true}); err == nil {
		t.Fatal("expected error with no stored session")
	}

	qs := &quiz.QuestionSet{Difficulty: quiz.Easy, Questions: []quiz.Question{
		{Text: "Q", Options: []string{"A", "B"}, CorrectAnswer: 0, Explanation: "A"},
	}}
	ctrl, err := session.New(env.Ctx, qs, session.WithPersistence(env.Persistence), session.WithScheduler(env.Scheduler))
	if err != nil {
		t.Fatal(err)
	}
	ctrl.Close()

	m, err := NewAppModel(Options{Env: env, Resume: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := m.router.Active().Title(); got != "Question 1 of 1" {
		t.Errorf("Title = %q", got)
	}
}

func TestView_TooSmall(t *testing.T) {
	m, err := NewAppModel(Options{Env: testEnv()})
	if err != nil {
		t.Fatal(err)
	}
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	am := updated.(AppModel)
	if am.width != 40 || am.height != 10 {
		t.Fatalf("size = %dx%d", am.width, am.height)
	}
	_ = am.View()
	if !strings.Contains(layout.RenderMinSizeMessage(am.width, am.height), "Terminal too small") {
		t.Error("expected min size message")
	}
}

func TestStartOverReturnsToSetup(t *testing.T) {
	env := testEnv()
	m, err := NewAppModel(Options{Env: env, Path: "a.pdf", Document: []byte("%PDF-")})
	if err != nil {
		t.Fatal(err)
	}
	updated, _ := m.Update(screens.StartOverMsg{Difficulty: quiz.Hard})
	am := updated.(AppModel)
	if got := am.router.Active().Title(); got != "New Quiz" {
		t.Errorf("Title = %q, want New Quiz", got)
	}
}
