package schema

import (
	"fmt"

	"github.com/abhisek/docquiz/internal/quiz"
)

// Shape is a fixed payload structure that untrusted model output must match.
type Shape struct {
	// Name identifies the shape. Kebab-case, used as the schema resource
	// name and as the structured-output name sent to providers.
	Name string

	// Description is sent to the model alongside the schema.
	Description string

	// Definition is the JSON Schema for the structural layer.
	Definition map[string]any

	// check runs cross-field rules the JSON Schema cannot express.
	check func(doc any) *ValidationError
}

func (s *Shape) String() string { return s.Name }

// providerOnlyKeywords are stripped from hints sent to providers; several
// structured-output APIs reject them. They are still enforced locally.
var providerOnlyKeywords = map[string]bool{
	"minItems":    true,
	"maxItems":    true,
	"uniqueItems": true,
	"minimum":     true,
	"minLength":   true,
}

// Hint returns a copy of the definition reduced to the keywords every
// provider's structured-output mode understands.
func (s *Shape) Hint() map[string]any {
	return stripKeywords(s.Definition)
}

func stripKeywords(def map[string]any) map[string]any {
	out := make(map[string]any, len(def))
	for k, v := range def {
		if providerOnlyKeywords[k] {
			continue
		}
		switch tv := v.(type) {
		case map[string]any:
			out[k] = stripKeywords(tv)
		default:
			out[k] = v
		}
	}
	return out
}

const (
	minOptions = 2
	maxOptions = 7
)

func difficultyEnum() []any {
	out := make([]any, len(quiz.Difficulties))
	for i, d := range quiz.Difficulties {
		out[i] = string(d)
	}
	return out
}

// QuestionSetShape describes a generated quiz.
var QuestionSetShape = &Shape{
	Name:        "question-set",
	Description: "A set of multiple-choice questions generated from the supplied document",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"minLength":   1,
							"description": "The question text",
						},
						"options": map[string]any{
							"type":        "array",
							"minItems":    minOptions,
							"maxItems":    maxOptions,
							"uniqueItems": true,
							"items":       map[string]any{"type": "string", "minLength": 1},
							"description": "Distinct answer options",
						},
						"correctAnswer": map[string]any{
							"type":        "integer",
							"minimum":     0,
							"description": "Zero-based index of the correct option",
						},
						"explanation": map[string]any{
							"type":        "string",
							"description": "Why the correct option is right and the others are wrong",
						},
					},
					"required": []any{"question", "options", "correctAnswer", "explanation"},
				},
			},
			"difficulty": map[string]any{
				"type": "string",
				"enum": difficultyEnum(),
			},
		},
		"required": []any{"questions"},
	},
	check: checkAnswerBounds,
}

// checkAnswerBounds enforces correctAnswer < len(options) for every question.
func checkAnswerBounds(doc any) *ValidationError {
	root, _ := doc.(map[string]any)
	questions, _ := root["questions"].([]any)
	for i, q := range questions {
		obj, _ := q.(map[string]any)
		options, _ := obj["options"].([]any)
		idx, ok := asInt(obj["correctAnswer"])
		if !ok {
			return &ValidationError{
				Path:   fmt.Sprintf("questions.%d.correctAnswer", i),
				Reason: fmt.Sprintf("%v is not a usable option index", obj["correctAnswer"]),
			}
		}
		if idx < 0 || idx >= len(options) {
			return &ValidationError{
				Path:   fmt.Sprintf("questions.%d.correctAnswer", i),
				Reason: fmt.Sprintf("index %d is out of range for %d options", idx, len(options)),
			}
		}
	}
	return nil
}

var reportLists = []string{
	"knowledgeGaps",
	"areasForImprovement",
	"suggestedStudyTopics",
	"suggestedResources",
	"nextFocusConcepts",
}

func analysisDefinition() map[string]any {
	props := map[string]any{
		"overallUnderstanding": map[string]any{
			"type":        "string",
			"minLength":   1,
			"description": "Assessment of the learner's overall understanding level",
		},
	}
	required := []any{"overallUnderstanding"}
	for _, name := range reportLists {
		props[name] = map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		}
		required = append(required, name)
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"performanceAnalysis": map[string]any{
				"type":       "object",
				"properties": props,
				"required":   required,
			},
		},
		"required": []any{"performanceAnalysis"},
	}
}

// AnalysisReportShape describes a remediation report, nested under
// "performanceAnalysis".
var AnalysisReportShape = &Shape{
	Name:        "analysis-report",
	Description: "A structured performance analysis of a completed quiz",
	Definition:  analysisDefinition(),
}
