package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/store"
)

func newQuestionSet(d quiz.Difficulty, n int) *quiz.QuestionSet {
	qs := &quiz.QuestionSet{Difficulty: d}
	for range n {
		qs.Questions = append(qs.Questions, quiz.Question{
			Text:          "Which?",
			Options:       []string{"A", "B", "C"},
			CorrectAnswer: 1,
			Explanation:   "B.",
		})
	}
	return qs
}

// countingScheduler records how often pending timers are cancelled.
type countingScheduler struct {
	*ManualClock
	mu      sync.Mutex
	cancels int
}

func (s *countingScheduler) After(d time.Duration, fn func()) func() {
	stop := s.ManualClock.After(d, fn)
	return func() {
		s.mu.Lock()
		s.cancels++
		s.mu.Unlock()
		stop()
	}
}

func (s *countingScheduler) cancelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancels
}

func startSession(t *testing.T, d quiz.Difficulty, n int, opts ...Option) (*Controller, *ManualClock) {
	t.Helper()
	clock := NewManualClock()
	c, err := New(context.Background(), newQuestionSet(d, n), append([]Option{WithScheduler(clock)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c, clock
}

func TestNew_Budget(t *testing.T) {
	tests := []struct {
		d    quiz.Difficulty
		want int
	}{
		{quiz.Easy, 600},
		{quiz.Medium, 420},
		{quiz.Hard, 300},
	}
	for _, tt := range tests {
		c, _ := startSession(t, tt.d, 2)
		s := c.State()
		if s.RemainingSeconds != tt.want {
			t.Errorf("%s: remaining = %d, want %d", tt.d, s.RemainingSeconds, tt.want)
		}
		if s.Phase != PhaseActive || s.CurrentIndex != 0 {
			t.Errorf("%s: unexpected initial state %+v", tt.d, s)
		}
		for i, a := range s.Answers {
			if a != quiz.Unanswered {
				t.Errorf("%s: slot %d answered at start", tt.d, i)
			}
		}
	}
}

func TestNew_EmptyQuestionSet(t *testing.T) {
	_, err := New(context.Background(), &quiz.QuestionSet{Difficulty: quiz.Easy})
	if !errors.Is(err, ErrInvalidQuestionSet) {
		t.Fatalf("expected ErrInvalidQuestionSet, got %v", err)
	}
	_, err = New(context.Background(), nil)
	if !errors.Is(err, ErrInvalidQuestionSet) {
		t.Fatalf("expected ErrInvalidQuestionSet, got %v", err)
	}
}

func TestTimeout_AutoSubmitPreservesAnswers(t *testing.T) {
	var events []SubmitEvent
	c, clock := startSession(t, quiz.Hard, 3, OnSubmit(func(ev SubmitEvent) { events = append(events, ev) }))
	ctx := context.Background()

	if _, err := c.SelectAnswer(ctx, 2); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}

	clock.Advance(299 * time.Second)
	if s := c.State(); s.Phase != PhaseActive || s.RemainingSeconds != 1 {
		t.Fatalf("expected active with 1s left, got %+v", s)
	}

	clock.Advance(time.Second)
	s := c.State()
	if s.Phase != PhaseSubmitted || s.SubmitReason != ReasonTimeout {
		t.Fatalf("expected timeout submission, got %+v", s)
	}
	if s.RemainingSeconds != 0 {
		t.Errorf("remaining = %d, want 0", s.RemainingSeconds)
	}
	want := quiz.AnswerTrace{2, quiz.Unanswered, quiz.Unanswered}
	for i := range want {
		if s.Answers[i] != want[i] {
			t.Fatalf("answers = %v, want %v", s.Answers, want)
		}
	}
	if len(events) != 1 || events[0].Reason != ReasonTimeout {
		t.Fatalf("expected one timeout event, got %+v", events)
	}
	if clock.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", clock.Pending())
	}

	// Further time does nothing.
	clock.Advance(time.Minute)
	if len(events) != 1 {
		t.Fatalf("submitted more than once: %d events", len(events))
	}
}

func TestSubmit_IdempotentAndTerminal(t *testing.T) {
	submits := 0
	c, clock := startSession(t, quiz.Easy, 2, OnSubmit(func(SubmitEvent) { submits++ }))
	ctx := context.Background()

	c.SelectAnswer(ctx, 1)
	first, err := c.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if first.Phase != PhaseSubmitted || first.SubmitReason != ReasonManual {
		t.Fatalf("unexpected state %+v", first)
	}

	again, err := c.Submit(ctx)
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if again.Answers[0] != first.Answers[0] || again.RemainingSeconds != first.RemainingSeconds {
		t.Errorf("second submit changed state: %+v vs %+v", again, first)
	}
	if submits != 1 {
		t.Errorf("OnSubmit ran %d times", submits)
	}

	if _, err := c.SelectAnswer(ctx, 0); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("SelectAnswer after submit: %v", err)
	}
	if _, err := c.GoNext(); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("GoNext after submit: %v", err)
	}
	if _, err := c.GoPrevious(); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("GoPrevious after submit: %v", err)
	}
	if s := c.State(); s.Answers[0] != 1 || s.CurrentIndex != 0 {
		t.Errorf("rejected mutation changed state: %+v", s)
	}

	clock.Advance(time.Hour)
	if s := c.State(); s.RemainingSeconds != first.RemainingSeconds || s.SubmitReason != ReasonManual {
		t.Errorf("timer kept running after submit: %+v", s)
	}
}

func TestNavigation_Clamps(t *testing.T) {
	c, _ := startSession(t, quiz.Medium, 3)

	s, _ := c.GoPrevious()
	if s.CurrentIndex != 0 {
		t.Fatalf("previous on first: index %d", s.CurrentIndex)
	}
	for range 5 {
		s, _ = c.GoNext()
	}
	if s.CurrentIndex != 2 {
		t.Fatalf("next past last: index %d", s.CurrentIndex)
	}
	if !s.IsLast() {
		t.Error("expected to be on the last question")
	}
}

func TestSelectAnswer(t *testing.T) {
	c, _ := startSession(t, quiz.Medium, 2)
	ctx := context.Background()

	tests := []struct {
		name    string
		option  int
		wantErr error
	}{
		{"first choice", 0, nil},
		{"revise", 2, nil},
		{"negative", -1, ErrIndexOutOfRange},
		{"past end", 3, ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := c.SelectAnswer(ctx, tt.option)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && s.Answers[0] != tt.option {
				t.Errorf("slot 0 = %d, want %d", s.Answers[0], tt.option)
			}
			if s.CurrentIndex != 0 {
				t.Errorf("answering moved to %d", s.CurrentIndex)
			}
		})
	}
	if s := c.State(); s.Answers[0] != 2 || s.Answers[1] != quiz.Unanswered {
		t.Errorf("unexpected trace %v", s.Answers)
	}
}

func TestNavigationDoesNotResetTimer(t *testing.T) {
	c, clock := startSession(t, quiz.Easy, 3)

	clock.Advance(10 * time.Second)
	c.GoNext()
	c.GoPrevious()
	clock.Advance(5 * time.Second)

	if s := c.State(); s.RemainingSeconds != 585 {
		t.Fatalf("remaining = %d, want 585", s.RemainingSeconds)
	}
}

func TestSubmitFromLast(t *testing.T) {
	c, _ := startSession(t, quiz.Easy, 2)
	ctx := context.Background()

	if _, err := c.SubmitFromLast(ctx); !errors.Is(err, ErrNotOnLastQuestion) {
		t.Fatalf("expected ErrNotOnLastQuestion, got %v", err)
	}
	if c.State().Phase != PhaseActive {
		t.Fatal("rejected submit must leave the session active")
	}

	c.GoNext()
	s, err := c.SubmitFromLast(ctx)
	if err != nil {
		t.Fatalf("SubmitFromLast: %v", err)
	}
	if s.Phase != PhaseSubmitted || s.SubmitReason != ReasonManual {
		t.Fatalf("unexpected state %+v", s)
	}
}

func TestSnapshotDoesNotAlias(t *testing.T) {
	c, _ := startSession(t, quiz.Easy, 2)
	s := c.State()
	s.Answers[0] = 2
	s.QuestionSet.Questions[0].Options[0] = "changed"

	fresh := c.State()
	if fresh.Answers[0] != quiz.Unanswered || fresh.QuestionSet.Questions[0].Options[0] != "A" {
		t.Fatalf("snapshot aliased live state: %+v", fresh)
	}
}

func TestTimerCancelledExactlyOnce(t *testing.T) {
	tests := []struct {
		name string
		end  func(c *Controller)
	}{
		{"submit", func(c *Controller) { c.Submit(context.Background()) }},
		{"close", func(c *Controller) { c.Close() }},
		{"abandon", func(c *Controller) { c.Abandon(context.Background()) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := &countingScheduler{ManualClock: NewManualClock()}
			c, err := New(context.Background(), newQuestionSet(quiz.Easy, 2), WithScheduler(sched))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			sched.Advance(3 * time.Second)

			tt.end(c)
			c.Close()
			c.Close()
			c.Submit(context.Background())

			if n := sched.cancelCount(); n != 1 {
				t.Fatalf("cancel called %d times, want 1", n)
			}
			if sched.Pending() != 0 {
				t.Fatalf("pending timers: %d", sched.Pending())
			}
		})
	}
}

func TestTimeoutReleasesNoTimer(t *testing.T) {
	sched := &countingScheduler{ManualClock: NewManualClock()}
	c, err := New(context.Background(), newQuestionSet(quiz.Hard, 1), WithScheduler(sched))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sched.Advance(300 * time.Second)
	c.Close()
	if sched.Pending() != 0 {
		t.Fatalf("pending timers: %d", sched.Pending())
	}
	// The last tick fired instead of being cancelled.
	if n := sched.cancelCount(); n != 0 {
		t.Fatalf("cancel called %d times, want 0", n)
	}
}

func TestClosedRejectsMutations(t *testing.T) {
	c, clock := startSession(t, quiz.Easy, 2)
	c.Close()

	if _, err := c.SelectAnswer(context.Background(), 0); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	clock.Advance(time.Hour)
	if s := c.State(); s.RemainingSeconds != 600 || s.Phase != PhaseActive {
		t.Errorf("closed session kept ticking: %+v", s)
	}
}

func TestOnChange_FiresOnTicksAndAnswers(t *testing.T) {
	var (
		mu     sync.Mutex
		states []State
	)
	c, clock := startSession(t, quiz.Easy, 2, OnChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}))

	c.SelectAnswer(context.Background(), 1)
	clock.Advance(2 * time.Second)
	c.GoNext()
	c.GoNext() // clamped, no change

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 4 {
		t.Fatalf("expected 4 changes, got %d", len(states))
	}
	if states[2].RemainingSeconds != 598 {
		t.Errorf("tick state remaining = %d", states[2].RemainingSeconds)
	}
}

func TestPersistence_WritesAndResume(t *testing.T) {
	kv := store.NewMemoryKV()
	p := NewPersistence(kv)
	ctx := context.Background()

	c, clock := startSession(t, quiz.Hard, 3, WithPersistence(p))
	c.SelectAnswer(ctx, 0)
	c.GoNext()
	c.SelectAnswer(ctx, 2)
	clock.Advance(40 * time.Second)
	c.Close()

	for _, k := range []string{KeyQuizData, KeyUserAnswers, KeyDifficulty, KeyRemainingSeconds} {
		if _, ok, _ := kv.Get(ctx, k); !ok {
			t.Fatalf("key %s not written", k)
		}
	}
	if v, _, _ := kv.Get(ctx, KeyUserAnswers); v != "[0,2,null]" {
		t.Errorf("userAnswers = %s", v)
	}

	clock2 := NewManualClock()
	r, err := Resume(ctx, p, WithScheduler(clock2))
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	defer r.Close()

	s := r.State()
	if s.RemainingSeconds != 260 {
		t.Errorf("remaining = %d, want 260", s.RemainingSeconds)
	}
	if s.Answers[0] != 0 || s.Answers[1] != 2 || s.Answers[2] != quiz.Unanswered {
		t.Errorf("answers = %v", s.Answers)
	}
	if s.QuestionSet.Difficulty != quiz.Hard {
		t.Errorf("difficulty = %s", s.QuestionSet.Difficulty)
	}

	clock2.Advance(260 * time.Second)
	if s := r.State(); s.Phase != PhaseSubmitted || s.SubmitReason != ReasonTimeout {
		t.Fatalf("resumed session did not time out: %+v", s)
	}
	if v, _, _ := kv.Get(ctx, KeyRemainingSeconds); v != "0" {
		t.Errorf("final remaining = %s", v)
	}
}

func TestResume_ZeroRemainingIsSubmitted(t *testing.T) {
	kv := store.NewMemoryKV()
	p := NewPersistence(kv)
	ctx := context.Background()

	qs := newQuestionSet(quiz.Easy, 2)
	p.SaveQuestionSet(ctx, qs)
	p.SaveAnswers(ctx, quiz.AnswerTrace{1, quiz.Unanswered})
	p.SaveRemaining(ctx, 0)

	clock := NewManualClock()
	c, err := Resume(ctx, p, WithScheduler(clock))
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if s := c.State(); s.Phase != PhaseSubmitted {
		t.Fatalf("expected submitted, got %+v", s)
	}
	if clock.Pending() != 0 {
		t.Errorf("submitted session armed a timer")
	}
}

func TestResume_BadData(t *testing.T) {
	validQS := `{"questions":[{"question":"Q","options":["A","B"],"correctAnswer":0,"explanation":"A"}],"difficulty":"easy"}`

	tests := []struct {
		name        string
		data        map[string]string
		wantMissing bool
	}{
		{
			name:        "nothing stored",
			data:        map[string]string{},
			wantMissing: true,
		},
		{
			name:        "answers missing",
			data:        map[string]string{KeyQuizData: validQS},
			wantMissing: true,
		},
		{
			name: "corrupt quiz data",
			data: map[string]string{KeyQuizData: `{"questions":`, KeyUserAnswers: `[0]`},
		},
		{
			name: "trace length mismatch",
			data: map[string]string{KeyQuizData: validQS, KeyUserAnswers: `[0,1]`},
		},
		{
			name: "answer past options",
			data: map[string]string{KeyQuizData: validQS, KeyUserAnswers: `[5]`},
		},
		{
			name: "bad countdown",
			data: map[string]string{KeyQuizData: validQS, KeyUserAnswers: `[null]`, KeyRemainingSeconds: "-3"},
		},
		{
			name: "bad difficulty",
			data: map[string]string{KeyQuizData: validQS, KeyUserAnswers: `[null]`, KeyDifficulty: "extreme"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := store.NewMemoryKV()
			ctx := context.Background()
			for k, v := range tt.data {
				kv.Set(ctx, k, v)
			}

			_, err := Resume(ctx, NewPersistence(kv), WithScheduler(NewManualClock()))
			if !errors.Is(err, ErrInvalidSessionData) {
				t.Fatalf("expected ErrInvalidSessionData, got %v", err)
			}
			if got := errors.Is(err, ErrMissingSessionData); got != tt.wantMissing {
				t.Errorf("missing = %v, want %v (%v)", got, tt.wantMissing, err)
			}
		})
	}
}

func TestResume_MissingCountdownUsesBudget(t *testing.T) {
	kv := store.NewMemoryKV()
	p := NewPersistence(kv)
	ctx := context.Background()
	p.SaveQuestionSet(ctx, newQuestionSet(quiz.Medium, 1))
	p.SaveAnswers(ctx, quiz.NewAnswerTrace(1))

	c, err := Resume(ctx, p, WithScheduler(NewManualClock()))
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	defer c.Close()
	if s := c.State(); s.RemainingSeconds != 420 {
		t.Errorf("remaining = %d, want 420", s.RemainingSeconds)
	}
}

func TestResume_CountdownClampedToBudget(t *testing.T) {
	kv := store.NewMemoryKV()
	p := NewPersistence(kv)
	ctx := context.Background()
	p.SaveQuestionSet(ctx, newQuestionSet(quiz.Hard, 1))
	p.SaveAnswers(ctx, quiz.NewAnswerTrace(1))
	p.SaveRemaining(ctx, 9999)

	c, err := Resume(ctx, p, WithScheduler(NewManualClock()))
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	defer c.Close()
	if s := c.State(); s.RemainingSeconds != 300 {
		t.Errorf("remaining = %d, want 300", s.RemainingSeconds)
	}
}

func TestAbandon_ClearsStorage(t *testing.T) {
	kv := store.NewMemoryKV()
	ctx := context.Background()
	c, _ := startSession(t, quiz.Easy, 1, WithPersistence(NewPersistence(kv)))

	if err := c.Abandon(ctx); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, KeyQuizData); ok {
		t.Fatal("quizData still stored")
	}
	if _, err := Resume(ctx, NewPersistence(kv)); !errors.Is(err, ErrMissingSessionData) {
		t.Fatalf("expected ErrMissingSessionData, got %v", err)
	}
}

type failingKV struct{ store.KV }

func (failingKV) Set(context.Context, string, string) error {
	return errors.New("disk full")
}

func TestSubmit_ReportsPersistenceFailure(t *testing.T) {
	kv := store.NewMemoryKV()
	p := NewPersistence(kv)
	var got SubmitEvent
	c, _ := startSession(t, quiz.Easy, 1, WithPersistence(p), OnSubmit(func(ev SubmitEvent) { got = ev }))

	p.kv = failingKV{kv}
	s, err := c.Submit(context.Background())
	if err == nil {
		t.Fatal("expected the failed write to be returned")
	}
	if s.Phase != PhaseSubmitted {
		t.Error("session must still be submitted")
	}
	if got.Err == nil {
		t.Error("OnSubmit must see the failure")
	}
}

// failAfterKV fails every Set after the first n succeed.
type failAfterKV struct {
	store.KV
	n *int
}

func (f failAfterKV) Set(ctx context.Context, key, value string) error {
	if *f.n <= 0 {
		return errors.New("disk full")
	}
	*f.n--
	return f.KV.Set(ctx, key, value)
}

func TestNew_PartialSaveIsCleared(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	p := NewPersistence(kv)

	// An older two-question session is on disk.
	old, _ := startSession(t, quiz.Easy, 2, WithPersistence(p))
	old.Close()

	// quizData and difficulty land, userAnswers fails.
	n := 2
	clock := NewManualClock()
	_, err := New(ctx, newQuestionSet(quiz.Hard, 2), WithPersistence(NewPersistence(failAfterKV{KV: kv, n: &n})), WithScheduler(clock))
	if err == nil {
		t.Fatal("expected the failed write to be returned")
	}
	if clock.Pending() != 0 {
		t.Error("no countdown may start after a failed save")
	}
	if _, err := Resume(ctx, p, WithScheduler(NewManualClock())); !errors.Is(err, ErrMissingSessionData) {
		t.Fatalf("expected ErrMissingSessionData after a failed start, got %v", err)
	}
}

func TestStore_Direct(t *testing.T) {
	st, err := NewStore(newQuestionSet(quiz.Easy, 2))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := st.Answer(2, 0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := st.Answer(-1, 0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := st.Answer(1, 2); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	st.submit(ReasonManual)
	if err := st.Answer(0, 0); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("expected ErrAlreadySubmitted, got %v", err)
	}
	if err := st.Advance(1); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("expected ErrAlreadySubmitted, got %v", err)
	}
	if s := st.Snapshot(); s.Answers[1] != 2 || s.Answers[0] != quiz.Unanswered {
		t.Errorf("unexpected trace %v", s.Answers)
	}
}
