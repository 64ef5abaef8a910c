// Package setup is the first screen: pick a PDF and a difficulty.
package setup

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/router"
	"github.com/abhisek/docquiz/internal/screen"
	"github.com/abhisek/docquiz/internal/screens"
	"github.com/abhisek/docquiz/internal/screens/generating"
	"github.com/abhisek/docquiz/internal/ui/components"
	"github.com/abhisek/docquiz/internal/ui/layout"
	"github.com/abhisek/docquiz/internal/ui/theme"
)

// MaxDocumentBytes caps the document read from disk.
const MaxDocumentBytes = 20 << 20

type focus int

const (
	focusPath focus = iota
	focusDifficulty
)

// Screen collects the document path and difficulty.
type Screen struct {
	env   *screens.Env
	input components.TextInput
	menu  components.Menu
	focus focus
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates the setup screen with path and difficulty prefilled.
func New(env *screens.Env, path string, d quiz.Difficulty) *Screen {
	items := make([]components.MenuItem, len(quiz.Difficulties))
	selected := 1
	for i, lvl := range quiz.Difficulties {
		items[i] = components.MenuItem{
			Label:  strings.ToUpper(lvl.String()[:1]) + lvl.String()[1:],
			Detail: layout.FormatClock(lvl.Seconds()),
		}
		if lvl == d {
			selected = i
		}
	}
	return &Screen{
		env:   env,
		input: components.NewTextInput("path/to/notes.pdf", path, 4096),
		menu:  components.NewMenu(items, selected),
	}
}

func (s *Screen) Init() tea.Cmd { return s.input.Init() }

func (s *Screen) Title() string { return "New Quiz" }

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Tab", Description: "Switch field"},
		{Key: "Enter", Description: "Generate"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

// Difficulty returns the selected level.
func (s *Screen) Difficulty() quiz.Difficulty {
	return quiz.Difficulties[s.menu.Selected]
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}

	switch kmsg.String() {
	case "tab", "shift+tab":
		if s.focus == focusPath {
			s.focus = focusDifficulty
			s.input.Model.Blur()
			return s, nil
		}
		s.focus = focusPath
		return s, s.input.Model.Focus()
	case "enter":
		return s, s.submit()
	}

	var cmd tea.Cmd
	if s.focus == focusPath {
		s.input, cmd = s.input.Update(msg)
	} else {
		s.menu, cmd = s.menu.Update(msg)
	}
	return s, cmd
}

func (s *Screen) submit() tea.Cmd {
	path := strings.TrimSpace(s.input.Value())
	doc, err := ReadDocument(path)
	if err != nil {
		s.input.SetError(err.Error())
		s.focus = focusPath
		return s.input.Model.Focus()
	}
	return router.Push(generating.New(s.env, filepath.Base(path), doc, s.Difficulty()))
}

// ReadDocument loads a PDF from disk and checks it looks like one.
func ReadDocument(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("PDF file is required")
	}
	path = expandHome(path)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s", path)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxDocumentBytes {
		return nil, fmt.Errorf("PDF file is too large (max %d MB)", MaxDocumentBytes>>20)
	}
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !bytes.HasPrefix(doc, []byte("%PDF-")) {
		return nil, fmt.Errorf("%s is not a PDF", filepath.Base(path))
	}
	return doc, nil
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

func (s *Screen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.Title.Width(width).Render("Turn a document into a timed quiz"))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Width(width).Render("Questions are generated from your PDF. The countdown starts as soon as they are ready."))
	b.WriteString("\n\n")

	label := func(text string, active bool) string {
		if active {
			return theme.Heading.Render(text)
		}
		return lipgloss.NewStyle().Foreground(theme.TextDim).Render(text)
	}

	form := label("Document", s.focus == focusPath) + "\n" +
		s.input.View() + "\n\n" +
		label("Difficulty", s.focus == focusDifficulty) + "\n" +
		s.menu.View()

	card := theme.Card.Width(min(width-8, 70)).Render(form)
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, card))
	return b.String()
}
