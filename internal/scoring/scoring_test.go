package scoring

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/abhisek/docquiz/internal/quiz"
)

func questionSet(correct ...int) *quiz.QuestionSet {
	qs := &quiz.QuestionSet{Difficulty: quiz.Medium}
	for _, c := range correct {
		qs.Questions = append(qs.Questions, quiz.Question{
			Text:          "q",
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: c,
		})
	}
	return qs
}

func TestScore(t *testing.T) {
	u := quiz.Unanswered
	tests := []struct {
		name    string
		correct []int
		trace   quiz.AnswerTrace
		want    Summary
	}{
		{
			name:    "one right one blank",
			correct: []int{1, 0},
			trace:   quiz.AnswerTrace{1, u},
			want:    Summary{TotalQuestions: 2, CorrectCount: 1, IncorrectCount: 0, UnansweredCount: 1, ScorePercent: 50},
		},
		{
			name:    "all wrong",
			correct: []int{0, 0, 0},
			trace:   quiz.AnswerTrace{1, 2, 3},
			want:    Summary{TotalQuestions: 3, IncorrectCount: 3},
		},
		{
			name:    "nothing answered",
			correct: []int{0, 1},
			trace:   quiz.AnswerTrace{u, u},
			want:    Summary{TotalQuestions: 2, UnansweredCount: 2},
		},
		{
			name:    "two of three",
			correct: []int{0, 1, 2},
			trace:   quiz.AnswerTrace{0, 1, 0},
			want:    Summary{TotalQuestions: 3, CorrectCount: 2, IncorrectCount: 1, ScorePercent: 67},
		},
		{
			name:    "perfect",
			correct: []int{3},
			trace:   quiz.AnswerTrace{3},
			want:    Summary{TotalQuestions: 1, CorrectCount: 1, ScorePercent: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Score(questionSet(tt.correct...), tt.trace)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if got.CorrectCount+got.IncorrectCount+got.UnansweredCount != got.TotalQuestions {
				t.Errorf("counts do not add up: %+v", got)
			}
			if got.ScorePercent < 0 || got.ScorePercent > 100 {
				t.Errorf("percent out of range: %d", got.ScorePercent)
			}
		})
	}
}

func TestPercent_RoundsHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		correct, total, want int
	}{
		{1, 8, 13},   // 12.5
		{3, 8, 38},   // 37.5
		{1, 200, 1},  // 0.5
		{1, 3, 33},   // 33.33
		{0, 5, 0},    // no correct answers
		{0, 0, 0},    // empty
		{7, 7, 100},  // full marks
		{5, 40, 13},  // 12.5
	}
	for _, tt := range tests {
		if got := Percent(tt.correct, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.correct, tt.total, got, tt.want)
		}
	}
}

func TestScore_InvalidTrace(t *testing.T) {
	tests := []struct {
		name  string
		qs    *quiz.QuestionSet
		trace quiz.AnswerTrace
	}{
		{"short", questionSet(0, 1), quiz.AnswerTrace{0}},
		{"long", questionSet(0), quiz.AnswerTrace{0, 1}},
		{"nil trace", questionSet(0), nil},
		{"nil set", nil, quiz.AnswerTrace{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Score(tt.qs, tt.trace)
			if !errors.Is(err, ErrInvalidTrace) {
				t.Fatalf("expected ErrInvalidTrace, got %v", err)
			}
		})
	}
}

func TestRecords(t *testing.T) {
	qs := questionSet(1, 0, 2)
	recs, err := Records(qs, quiz.AnswerTrace{1, quiz.Unanswered, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := json.Marshal(recs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"question":"q","userAnswer":1,"correctAnswer":1,"isCorrect":true},` +
		`{"question":"q","userAnswer":null,"correctAnswer":0,"isCorrect":false},` +
		`{"question":"q","userAnswer":0,"correctAnswer":2,"isCorrect":false}]`
	if string(data) != want {
		t.Errorf("records:\n got %s\nwant %s", data, want)
	}

	if _, err := Records(qs, quiz.AnswerTrace{1}); !errors.Is(err, ErrInvalidTrace) {
		t.Errorf("expected ErrInvalidTrace, got %v", err)
	}
}
