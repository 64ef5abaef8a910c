package generation

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/abhisek/docquiz/internal/quiz"
)

const quizSystemPrompt = `You are an examiner who writes rigorous multiple-choice questions in the style of a competitive entrance exam such as JEE Advanced.

Rules:
- Read the attached document and cover every topic it contains, not only the first sections.
- Mix question forms: scenario-based problems, assertion and reasoning pairs, concept substitution, and "what happens if" variations of the material.
- Every option in a question must be distinct. Never repeat an option text.
- correctAnswer is the zero-based index of the single correct option.
- The explanation must justify the correct option and state why each other option is wrong.
- Use plain text. Do not wrap the output in markdown.`

var difficultyRules = map[quiz.Difficulty]string{
	quiz.Easy: `Difficulty: easy.
- Questions test direct understanding of one concept.
- Use two plausible distractors and one option that is an obvious trap for a careless reader.`,
	quiz.Medium: `Difficulty: medium.
- Questions combine two related ideas.
- Every option should look correct at first glance; exactly one hides a conceptual flaw the others lack.`,
	quiz.Hard: `Difficulty: hard.
- Questions need multi-step reasoning across sections of the document.
- Distractors are almost correct but subtly wrong: a missed condition, a swapped cause and effect, a boundary case.`,
}

// buildQuizMessage returns the user message that accompanies the document.
func buildQuizMessage(d quiz.Difficulty) string {
	rules, ok := difficultyRules[d]
	if !ok {
		rules = difficultyRules[quiz.Medium]
	}

	var b strings.Builder
	b.WriteString("Generate a quiz from the attached document.\n\n")
	b.WriteString(rules)
	fmt.Fprintf(&b, "\n\nSet \"difficulty\" to %q in the output.", d)
	return b.String()
}

const analysisSystemPrompt = `You are a professor with a Ph.D. in the subject of the quiz, reviewing a student's attempt. You diagnose how the student thinks, not just which answers were wrong.

Fill in "performanceAnalysis" with:
- overallUnderstanding: the student's level (Beginner, Intermediate, Advanced or Expert) and how their reasoning shows it.
- knowledgeGaps: the specific concepts the student lacks, each with why the answers point to it.
- areasForImprovement: recurring mistake patterns (calculation slips, assertion and reasoning logic, conceptual traps) and a strategy for each.
- suggestedStudyTopics: topics to revise, each with a time estimate.
- suggestedResources: concrete resources for those topics.
- nextFocusConcepts: the few high-impact concepts to master next.

Be specific to the answers given. Do not invent questions the student did not see.`

var analysisUserTemplate = template.Must(template.New("analysis").Parse(
	`I took a quiz with {{.Total}} questions at the {{.Difficulty}} difficulty level. I got {{.Correct}} correct ({{.Percent}}%).
{{- if .Unanswered}} I left {{.Unanswered}} unanswered.{{end}}

Here are my answers (userAnswer is null when I did not answer):
{{.Records}}`))

type analysisPromptData struct {
	Total      int
	Difficulty quiz.Difficulty
	Correct    int
	Percent    int
	Unanswered int
	Records    string
}

// buildAnalysisMessage renders the per-question records and score line.
func buildAnalysisMessage(in AnalysisInput) (string, error) {
	records, err := json.MarshalIndent(in.Records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode records: %w", err)
	}

	d := quiz.Medium
	if in.QuestionSet != nil && in.QuestionSet.Difficulty.Valid() {
		d = in.QuestionSet.Difficulty
	}

	var b strings.Builder
	err = analysisUserTemplate.Execute(&b, analysisPromptData{
		Total:      in.Summary.TotalQuestions,
		Difficulty: d,
		Correct:    in.Summary.CorrectCount,
		Percent:    in.Summary.ScorePercent,
		Unanswered: in.Summary.UnansweredCount,
		Records:    string(records),
	})
	if err != nil {
		return "", fmt.Errorf("render analysis prompt: %w", err)
	}
	return b.String(), nil
}
