package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/ui/theme"
)

// MultiChoice renders one quiz question. The cursor moves freely; Chosen
// is the answer recorded for the question, if any. In review mode the
// correct option and a wrong choice are highlighted.
type MultiChoice struct {
	Question quiz.Question
	Cursor   int
	Chosen   int
	Review   bool
}

// NewMultiChoice creates a selector positioned on the recorded answer.
func NewMultiChoice(q quiz.Question, chosen int) MultiChoice {
	cursor := chosen
	if cursor < 0 || cursor >= len(q.Options) {
		cursor = 0
	}
	return MultiChoice{Question: q, Cursor: cursor, Chosen: chosen}
}

// OptionLabel returns the letter shown for option i.
func OptionLabel(i int) string {
	return string(rune('A' + i))
}

// Update moves the cursor. Digits and letters jump straight to an option.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, tea.Cmd) {
	if m.Review {
		return m, nil
	}
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key := kmsg.String(); key {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Question.Options)-1 {
			m.Cursor++
		}
	default:
		if i, ok := optionKey(key, len(m.Question.Options)); ok {
			m.Cursor = i
		}
	}
	return m, nil
}

// optionKey maps "1".."7" and "a".."g" to an option index.
func optionKey(key string, n int) (int, bool) {
	if len(key) != 1 {
		return 0, false
	}
	c := key[0]
	var i int
	switch {
	case c >= '1' && c <= '9':
		i = int(c - '1')
	case c >= 'a' && c <= 'z':
		i = int(c - 'a')
	default:
		return 0, false
	}
	return i, i < n
}

// View renders the question and its options.
func (m MultiChoice) View(width int) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().
		Width(min(width-4, 90)).
		Foreground(theme.Text).
		Bold(true).
		Render(m.Question.Text))
	b.WriteString("\n\n")

	for i, opt := range m.Question.Options {
		prefix := "  "
		if i == m.Cursor && !m.Review {
			prefix = "▸ "
		}
		mark := " "
		if i == m.Chosen {
			mark = "●"
		}
		line := fmt.Sprintf("%s%s %s)  %s", prefix, mark, OptionLabel(i), opt)

		style := theme.Unselected
		switch {
		case m.Review && i == m.Question.CorrectAnswer:
			style = theme.Correct
		case m.Review && i == m.Chosen:
			style = theme.Incorrect
		case m.Review:
			style = lipgloss.NewStyle().Foreground(theme.TextDim)
		case i == m.Cursor:
			style = theme.Selected
		case i == m.Chosen:
			style = theme.Chosen
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	if m.Review && m.Question.Explanation != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().
			Width(min(width-4, 90)).
			Foreground(theme.TextDim).
			Render(m.Question.Explanation))
		b.WriteString("\n")
	}
	return b.String()
}

// IsCorrect reports whether the recorded answer is right.
func (m MultiChoice) IsCorrect() bool {
	return m.Chosen == m.Question.CorrectAnswer
}
