package session

import (
	"fmt"

	"github.com/abhisek/docquiz/internal/quiz"
)

// Store holds the canonical state of one session. It is not safe for
// concurrent use; the Controller serializes access to it.
type Store struct {
	qs        *quiz.QuestionSet
	answers   quiz.AnswerTrace
	current   int
	remaining int
	phase     Phase
	reason    SubmitReason
}

// NewStore creates an active session over a copy of qs with every slot
// unanswered and the full time budget for its difficulty.
func NewStore(qs *quiz.QuestionSet) (*Store, error) {
	if qs.Len() == 0 {
		return nil, ErrInvalidQuestionSet
	}
	return &Store{
		qs:        qs.Clone(),
		answers:   quiz.NewAnswerTrace(qs.Len()),
		remaining: qs.Difficulty.Seconds(),
		phase:     PhaseActive,
	}, nil
}

// restoreStore rebuilds a store from persisted values. A zero remaining
// budget yields a session already submitted by timeout.
func restoreStore(qs *quiz.QuestionSet, answers quiz.AnswerTrace, remaining int) (*Store, error) {
	s, err := NewStore(qs)
	if err != nil {
		return nil, err
	}
	if len(answers) != s.qs.Len() {
		return nil, fmt.Errorf("%w: %d answers for %d questions", ErrInvalidSessionData, len(answers), s.qs.Len())
	}
	s.answers = answers.Clone()
	s.remaining = max(remaining, 0)
	if s.remaining == 0 {
		s.phase = PhaseSubmitted
		s.reason = ReasonTimeout
	}
	return s, nil
}

// Answer records option for question index, replacing any earlier choice.
func (s *Store) Answer(index, option int) error {
	if s.phase == PhaseSubmitted {
		return ErrAlreadySubmitted
	}
	if index < 0 || index >= len(s.answers) {
		return fmt.Errorf("question %d: %w", index, ErrIndexOutOfRange)
	}
	s.answers[index] = option
	return nil
}

// Advance moves the current index by delta, clamped to the question range.
func (s *Store) Advance(delta int) error {
	if s.phase == PhaseSubmitted {
		return ErrAlreadySubmitted
	}
	s.current = min(max(s.current+delta, 0), len(s.answers)-1)
	return nil
}

// Snapshot returns a deep copy of the state.
func (s *Store) Snapshot() State {
	return State{
		QuestionSet:      s.qs.Clone(),
		Answers:          s.answers.Clone(),
		CurrentIndex:     s.current,
		RemainingSeconds: s.remaining,
		Phase:            s.phase,
		SubmitReason:     s.reason,
	}
}

// tick consumes one second of the budget and returns what is left.
func (s *Store) tick() int {
	if s.remaining > 0 {
		s.remaining--
	}
	return s.remaining
}

// submit ends the session. It reports false if it had already ended.
func (s *Store) submit(reason SubmitReason) bool {
	if s.phase == PhaseSubmitted {
		return false
	}
	s.phase = PhaseSubmitted
	s.reason = reason
	return true
}

func (s *Store) optionCount(index int) int {
	return len(s.qs.Questions[index].Options)
}
