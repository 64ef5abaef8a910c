// Package session runs one timed quiz attempt: the canonical answer state,
// the countdown state machine driving it to submission, and its
// persistence between process restarts.
package session

import (
	"errors"
	"fmt"

	"github.com/abhisek/docquiz/internal/quiz"
)

var (
	// ErrInvalidQuestionSet is returned when a session is created from an
	// empty question set.
	ErrInvalidQuestionSet = errors.New("question set has no questions")

	// ErrIndexOutOfRange is returned for a question or option index outside
	// its bounds.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrAlreadySubmitted is returned by every mutation after submission.
	ErrAlreadySubmitted = errors.New("quiz already submitted")

	// ErrNotOnLastQuestion is returned by SubmitFromLast away from the
	// final question.
	ErrNotOnLastQuestion = errors.New("submit is only available on the last question")

	// ErrClosed is returned by operations on a closed controller.
	ErrClosed = errors.New("session closed")

	// ErrInvalidSessionData means stored session data is corrupt or
	// inconsistent. The only recovery is to start a new quiz.
	ErrInvalidSessionData = errors.New("invalid quiz data, please start a new quiz")

	// ErrMissingSessionData means a required stored entry is absent.
	// errors.Is(ErrMissingSessionData, ErrInvalidSessionData) holds.
	ErrMissingSessionData = fmt.Errorf("missing session data: %w", ErrInvalidSessionData)
)

// Phase is the lifecycle stage of a session.
type Phase int

const (
	PhaseActive    Phase = iota // Accepting answers, timer running
	PhaseSubmitted              // Terminal
)

func (p Phase) String() string {
	if p == PhaseSubmitted {
		return "submitted"
	}
	return "active"
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "active":
		*p = PhaseActive
	case "submitted":
		*p = PhaseSubmitted
	default:
		return fmt.Errorf("unknown phase %q", b)
	}
	return nil
}

// SubmitReason records what ended a session.
type SubmitReason string

const (
	ReasonManual  SubmitReason = "manual"
	ReasonTimeout SubmitReason = "timeout"
)

// State is a point-in-time copy of a session. It never aliases the live
// session.
type State struct {
	QuestionSet      *quiz.QuestionSet `json:"quizData"`
	Answers          quiz.AnswerTrace  `json:"userAnswers"`
	CurrentIndex     int               `json:"currentIndex"`
	RemainingSeconds int               `json:"remainingSeconds"`
	Phase            Phase             `json:"phase"`
	SubmitReason     SubmitReason      `json:"submitReason,omitempty"`
}

// CurrentQuestion returns the question at CurrentIndex.
func (s State) CurrentQuestion() quiz.Question {
	return s.QuestionSet.Questions[s.CurrentIndex]
}

// IsLast reports whether CurrentIndex is the final question.
func (s State) IsLast() bool {
	return s.CurrentIndex == s.QuestionSet.Len()-1
}

// Submitted reports whether the session has ended.
func (s State) Submitted() bool {
	return s.Phase == PhaseSubmitted
}
