package quizrun

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"

	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/router"
	"github.com/abhisek/docquiz/internal/screens"
	"github.com/abhisek/docquiz/internal/screens/results"
	"github.com/abhisek/docquiz/internal/session"
)

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func testQuestions() *quiz.QuestionSet {
	return &quiz.QuestionSet{
		Difficulty: quiz.Medium,
		Questions: []quiz.Question{
			{Text: "First?", Options: []string{"A", "B", "C"}, CorrectAnswer: 1, Explanation: "B"},
			{Text: "Second?", Options: []string{"A", "B"}, CorrectAnswer: 0, Explanation: "A"},
		},
	}
}

func newRun(t *testing.T) (*Screen, *session.ManualClock) {
	t.Helper()
	clock := session.NewManualClock()
	env := &screens.Env{Ctx: context.Background(), Scheduler: clock, Log: zerolog.Nop()}
	changes := screens.NewChanges()
	ctrl, err := session.New(env.Ctx, testQuestions(), env.SessionOptions(changes)...)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	t.Cleanup(ctrl.Close)
	return New(env, ctrl, changes), clock
}

// deliver feeds the pending snapshot to the screen, as the runtime would.
func deliver(t *testing.T, s *Screen) tea.Cmd {
	t.Helper()
	msg := waitForChange(s.changes)()
	_, cmd := s.Update(msg)
	return cmd
}

func TestAnswerSelection(t *testing.T) {
	s, _ := newRun(t)

	s.Update(keyPress('3'))
	if s.mc.Cursor != 2 {
		t.Fatalf("cursor = %d, want 2", s.mc.Cursor)
	}
	s.Update(specialKey(tea.KeyUp))
	s.Update(specialKey(tea.KeyEnter))

	if got := s.State().Answers[0]; got != 1 {
		t.Errorf("answer = %d, want 1", got)
	}
	if s.State().CurrentIndex != 0 {
		t.Error("answering must not move to another question")
	}
}

func TestNavigation(t *testing.T) {
	s, _ := newRun(t)

	s.Update(specialKey(tea.KeyRight))
	if s.Title() != "Question 2 of 2" {
		t.Errorf("Title = %q", s.Title())
	}
	s.Update(specialKey(tea.KeyRight))
	if s.State().CurrentIndex != 1 {
		t.Error("next on the last question must be a no-op")
	}
	s.Update(specialKey(tea.KeyLeft))
	if s.State().CurrentIndex != 0 {
		t.Errorf("index = %d, want 0", s.State().CurrentIndex)
	}
}

func TestCountdownUpdatesStatus(t *testing.T) {
	s, clock := newRun(t)
	if !strings.Contains(s.Status(), "7:00") {
		t.Fatalf("Status = %q, want 7:00", s.Status())
	}

	clock.Advance(time.Second)
	if cmd := deliver(t, s); cmd == nil {
		t.Error("expected to keep listening for changes")
	}
	if !strings.Contains(s.Status(), "6:59") {
		t.Errorf("Status = %q, want 6:59", s.Status())
	}
}

func TestSubmitNeedsConfirmation(t *testing.T) {
	s, _ := newRun(t)

	s.Update(keyPress('s'))
	if !s.confirming {
		t.Fatal("expected confirmation prompt with unanswered questions")
	}
	if !strings.Contains(s.View(100, 30), "2 unanswered") {
		t.Error("prompt should count unanswered questions")
	}
	s.Update(keyPress('n'))
	if s.confirming || s.State().Submitted() {
		t.Fatal("declining must keep the quiz running")
	}

	s.Update(keyPress('s'))
	_, cmd := s.Update(keyPress('y'))
	if !s.State().Submitted() {
		t.Fatal("expected submitted session")
	}
	assertResults(t, cmd)
}

func TestSubmitFromLastWhenComplete(t *testing.T) {
	s, _ := newRun(t)
	s.Update(specialKey(tea.KeyEnter))
	s.Update(specialKey(tea.KeyRight))
	s.Update(specialKey(tea.KeyEnter))

	_, cmd := s.Update(keyPress('s'))
	if s.confirming {
		t.Fatal("no confirmation expected when every question is answered")
	}
	assertResults(t, cmd)
}

func TestTimeoutMovesToResults(t *testing.T) {
	s, clock := newRun(t)
	clock.Advance(420 * time.Second)

	var cmd tea.Cmd
	for !s.State().Submitted() {
		cmd = deliver(t, s)
	}
	if s.State().SubmitReason != session.ReasonTimeout {
		t.Errorf("reason = %q, want timeout", s.State().SubmitReason)
	}
	assertResults(t, cmd)
}

func assertResults(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected navigation command")
	}
	msg, ok := cmd().(router.ResetMsg)
	if !ok {
		t.Fatalf("expected ResetMsg, got %T", cmd())
	}
	if _, ok := msg.Screen.(*results.Screen); !ok {
		t.Errorf("expected results screen, got %T", msg.Screen)
	}
}
