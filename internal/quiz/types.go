package quiz

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Question is a single multiple-choice item generated from a document.
type Question struct {
	// Text is the question prompt. Serialized as "question" to match the
	// payloads exchanged with the browser client.
	Text string `json:"question"`

	// Options holds 2-7 distinct answer choices in display order.
	Options []string `json:"options"`

	// CorrectAnswer is the zero-based index of the correct option.
	CorrectAnswer int `json:"correctAnswer"`

	// Explanation justifies the correct option and why the others are wrong.
	Explanation string `json:"explanation"`
}

// QuestionSet is the immutable content of one quiz session.
type QuestionSet struct {
	Questions  []Question `json:"questions"`
	Difficulty Difficulty `json:"difficulty"`
}

// Len returns the number of questions.
func (qs *QuestionSet) Len() int {
	if qs == nil {
		return 0
	}
	return len(qs.Questions)
}

// Clone returns a deep copy of the question set.
func (qs *QuestionSet) Clone() *QuestionSet {
	if qs == nil {
		return nil
	}
	out := &QuestionSet{
		Questions:  make([]Question, len(qs.Questions)),
		Difficulty: qs.Difficulty,
	}
	for i, q := range qs.Questions {
		q.Options = append([]string(nil), q.Options...)
		out.Questions[i] = q
	}
	return out
}

// Difficulty controls question construction and the session time budget.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists the supported levels in ascending order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// timeBudgets is the fixed countdown per difficulty, in seconds.
var timeBudgets = map[Difficulty]int{
	Easy:   600,
	Medium: 420,
	Hard:   300,
}

// ParseDifficulty normalizes s into a Difficulty. An empty string selects
// Medium.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if d == "" {
		return Medium, nil
	}
	if !d.Valid() {
		return "", fmt.Errorf("unknown difficulty %q (want easy, medium or hard)", s)
	}
	return d, nil
}

// Valid reports whether d is one of the supported levels.
func (d Difficulty) Valid() bool {
	_, ok := timeBudgets[d]
	return ok
}

// Seconds returns the countdown budget for d. Unknown levels get the
// Medium budget.
func (d Difficulty) Seconds() int {
	if s, ok := timeBudgets[d]; ok {
		return s
	}
	return timeBudgets[Medium]
}

func (d Difficulty) String() string { return string(d) }

// Unanswered marks an answer slot with no selection.
const Unanswered = -1

// AnswerTrace holds one option index per question, or Unanswered.
// On the wire unanswered slots are null, e.g. [1, null, 0].
type AnswerTrace []int

// NewAnswerTrace returns a trace of n unanswered slots.
func NewAnswerTrace(n int) AnswerTrace {
	t := make(AnswerTrace, n)
	for i := range t {
		t[i] = Unanswered
	}
	return t
}

// Answered reports whether slot i holds a selection.
func (t AnswerTrace) Answered(i int) bool {
	return i >= 0 && i < len(t) && t[i] != Unanswered
}

// AnsweredCount returns the number of slots holding a selection.
func (t AnswerTrace) AnsweredCount() int {
	n := 0
	for _, a := range t {
		if a != Unanswered {
			n++
		}
	}
	return n
}

// Clone returns a copy that does not alias t.
func (t AnswerTrace) Clone() AnswerTrace {
	if t == nil {
		return nil
	}
	return append(AnswerTrace(nil), t...)
}

func (t AnswerTrace) MarshalJSON() ([]byte, error) {
	out := make([]*int, len(t))
	for i, a := range t {
		if a != Unanswered {
			v := a
			out[i] = &v
		}
	}
	return json.Marshal(out)
}

func (t *AnswerTrace) UnmarshalJSON(data []byte) error {
	var raw []*int
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("answer trace: %w", err)
	}
	out := make(AnswerTrace, len(raw))
	for i, p := range raw {
		switch {
		case p == nil:
			out[i] = Unanswered
		case *p < 0:
			return fmt.Errorf("answer trace: slot %d has negative option index %d", i, *p)
		default:
			out[i] = *p
		}
	}
	*t = out
	return nil
}

// AnalysisReport is the remediation report produced after a quiz. Its
// content is free text and opaque to the engine.
type AnalysisReport struct {
	OverallUnderstanding string   `json:"overallUnderstanding"`
	KnowledgeGaps        []string `json:"knowledgeGaps"`
	AreasForImprovement  []string `json:"areasForImprovement"`
	SuggestedStudyTopics []string `json:"suggestedStudyTopics"`
	SuggestedResources   []string `json:"suggestedResources"`
	NextFocusConcepts    []string `json:"nextFocusConcepts"`
}

// QuestionRecord is the per-question outcome sent to the analysis model.
type QuestionRecord struct {
	Question      string `json:"question"`
	UserAnswer    *int   `json:"userAnswer"`
	CorrectAnswer int    `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
}
