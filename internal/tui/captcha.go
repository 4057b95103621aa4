package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/vkaudio/internal/tui/styles"
)

// CaptchaModel asks for the text shown in a captcha image.
// Enter submits; Esc or Ctrl+C abandons with an empty answer.
type CaptchaModel struct {
	input     textinput.Model
	attempt   int
	imagePath string
	imageErr  error
	done      bool
}

// NewCaptchaModel creates the prompt. imagePath is where the image was saved;
// imageErr is shown instead when it could not be saved or opened.
func NewCaptchaModel(attempt int, imagePath string, imageErr error) CaptchaModel {
	ti := textinput.New()
	ti.Placeholder = "type the characters, empty to skip"
	ti.CharLimit = 32
	ti.Width = 36
	ti.Prompt = "› "
	ti.PromptStyle = styles.AccentStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle
	ti.Focus()

	return CaptchaModel{
		input:     ti,
		attempt:   attempt,
		imagePath: imagePath,
		imageErr:  imageErr,
	}
}

func (m CaptchaModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m CaptchaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.input.SetValue("")
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Answer is the submitted text, empty when abandoned
func (m CaptchaModel) Answer() string {
	return m.input.Value()
}

func (m CaptchaModel) View() string {
	if m.done {
		return ""
	}

	title := "Captcha required"
	if m.attempt > 1 {
		title = fmt.Sprintf("Captcha required (attempt %d)", m.attempt)
	}

	var image string
	switch {
	case m.imageErr != nil:
		image = styles.ErrorStyle.Render("image unavailable: " + m.imageErr.Error())
	case m.imagePath != "":
		image = styles.SubtitleStyle.Render("image: ") + m.imagePath
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.ModalTitleStyle.Render(title),
		image,
		"",
		m.input.View(),
		"",
		styles.HelpLine("enter", "submit", "esc", "skip"),
	)

	return styles.ModalStyle.Render(content) + "\n"
}
