// Package ui provides terminal output and prompts for appversion.
package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Action represents a user decision before a release is written.
type Action int

const (
	ActionRelease Action = iota
	ActionEdit
	ActionCancel
)

// String returns the string representation of an Action.
func (a Action) String() string {
	switch a {
	case ActionRelease:
		return "release"
	case ActionEdit:
		return "edit"
	case ActionCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Spinner provides loading animation functionality.
type Spinner interface {
	Start()
	Stop()
	UpdateText(text string)
}

// Manager defines the interface for UI operations.
type Manager interface {
	ShowInfo(message string)
	ShowWarning(message string)
	ShowSuccess(message string)
	ShowError(err error)
	// DisplaySection prints a rendered changelog section under title.
	DisplaySection(title, section string)
	// PromptAction asks whether to release, edit the changelog section or cancel.
	PromptAction(title string) (Action, error)
	// EditSection lets the user rewrite a changelog section.
	EditSection(section string) (string, error)
	PromptConfirm(message string) (bool, error)
	ShowSpinner(text string) Spinner
}

// styles holds the lipgloss styles for UI rendering.
type styles struct {
	title      lipgloss.Style
	section    lipgloss.Style
	success    lipgloss.Style
	warning    lipgloss.Style
	errorStyle lipgloss.Style
	info       lipgloss.Style
}

func newStyles(colorEnabled bool) *styles {
	if !colorEnabled {
		return &styles{
			title:      lipgloss.NewStyle(),
			section:    lipgloss.NewStyle(),
			success:    lipgloss.NewStyle(),
			warning:    lipgloss.NewStyle(),
			errorStyle: lipgloss.NewStyle(),
			info:       lipgloss.NewStyle(),
		}
	}

	return &styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")),
		section: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")),
		warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220")),
		errorStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		info: lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")),
	}
}

// DefaultManager implements the Manager interface using charmbracelet libraries.
type DefaultManager struct {
	colorEnabled bool
	editor       string
	out          io.Writer
	styles       *styles
}

// NewDefaultManager creates a new DefaultManager writing to stdout.
func NewDefaultManager(colorEnabled bool, editor string) *DefaultManager {
	return NewDefaultManagerWithOutput(colorEnabled, editor, os.Stdout)
}

// NewDefaultManagerWithOutput creates a DefaultManager writing to out.
func NewDefaultManagerWithOutput(colorEnabled bool, editor string, out io.Writer) *DefaultManager {
	return &DefaultManager{
		colorEnabled: colorEnabled,
		editor:       editor,
		out:          out,
		styles:       newStyles(colorEnabled),
	}
}

// ShowInfo displays a progress message.
func (m *DefaultManager) ShowInfo(message string) {
	fmt.Fprintln(m.out, m.styles.info.Render(message))
}

// ShowWarning displays a warning.
func (m *DefaultManager) ShowWarning(message string) {
	fmt.Fprintln(m.out, m.styles.warning.Render(message))
}

// ShowSuccess displays a success message to the user.
func (m *DefaultManager) ShowSuccess(message string) {
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, m.styles.success.Render("[OK] "+message))
	fmt.Fprintln(m.out)
}

// ShowError displays an error message to the user.
func (m *DefaultManager) ShowError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, m.styles.errorStyle.Render("Error: "+err.Error()))
	fmt.Fprintln(m.out)
}

// DisplaySection prints a changelog section between rules.
func (m *DefaultManager) DisplaySection(title, section string) {
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, m.styles.title.Render(title))
	fmt.Fprintln(m.out, strings.Repeat("-", 50))
	fmt.Fprintln(m.out, m.styles.section.Render(strings.TrimRight(section, "\n")))
	fmt.Fprintln(m.out, strings.Repeat("-", 50))
	fmt.Fprintln(m.out)
}

// PromptAction prompts the user to select an action using Bubble Tea.
func (m *DefaultManager) PromptAction(title string) (Action, error) {
	model := newActionSelectModel(title)
	p := tea.NewProgram(model, tea.WithOutput(m.out))

	finalModel, err := p.Run()
	if err != nil {
		return ActionCancel, err
	}

	result := finalModel.(actionSelectModel)
	return result.selected, nil
}

// actionSelectModel is the Bubble Tea model for action selection.
type actionSelectModel struct {
	title    string
	choices  []actionChoice
	cursor   int
	selected Action
	done     bool
}

type actionChoice struct {
	action Action
	label  string
	icon   string
	desc   string
}

func newActionSelectModel(title string) actionSelectModel {
	return actionSelectModel{
		title: title,
		choices: []actionChoice{
			{ActionRelease, "Release", "›", "Write, commit, push and tag"},
			{ActionEdit, "Edit", "•", "Modify the changelog section first"},
			{ActionCancel, "Cancel", "×", "Abort without touching anything"},
		},
		cursor:   0,
		selected: ActionCancel,
	}
}

func (m actionSelectModel) Init() tea.Cmd {
	return nil
}

func (m actionSelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.selected = ActionCancel
			m.done = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}
		case "enter", " ":
			m.selected = m.choices[m.cursor].action
			m.done = true
			return m, tea.Quit
		case "1":
			m.selected = ActionRelease
			m.done = true
			return m, tea.Quit
		case "2":
			m.selected = ActionEdit
			m.done = true
			return m, tea.Quit
		case "3":
			m.selected = ActionCancel
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m actionSelectModel) View() string {
	if m.done {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39"))

	selectedStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212"))

	normalStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252"))

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	for i, choice := range m.choices {
		cursor := "  "
		style := normalStyle
		if m.cursor == i {
			cursor = "▸ "
			style = selectedStyle
		}

		line := fmt.Sprintf("%s%s %s", cursor, choice.icon, style.Render(choice.label))
		sb.WriteString(line)
		sb.WriteString(descStyle.Render(fmt.Sprintf(" - %s", choice.desc)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(descStyle.Render("↑/↓ or j/k to move • Enter to select • 1-3 quick select • q to cancel"))

	return sb.String()
}

// EditSection opens an editor on the section and returns the result.
// An empty result keeps the original section.
func (m *DefaultManager) EditSection(section string) (string, error) {
	var (
		edited string
		err    error
	)

	editor := m.getEditor()
	if editor != "" {
		edited, err = m.editWithExternalEditor(editor, section)
		if err != nil {
			// Fall back to inline editor if external editor fails
			fmt.Fprintln(m.out, m.styles.info.Render("External editor not available, using inline editor..."))
		}
	}
	if editor == "" || err != nil {
		edited, err = m.editWithInlineEditor(section)
		if err != nil {
			return "", fmt.Errorf("failed to edit changelog section: %w", err)
		}
	}

	return NormalizeSection(edited, section), nil
}

// NormalizeSection trims trailing blank lines from edited and restores the
// single blank line that separates sections. Blank input yields fallback.
func NormalizeSection(edited, fallback string) string {
	trimmed := strings.TrimRight(edited, " \t\r\n")
	if strings.TrimSpace(trimmed) == "" {
		return fallback
	}
	return trimmed + "\n\n"
}

// getEditor returns the editor to use for editing sections.
func (m *DefaultManager) getEditor() string {
	if m.editor != "" {
		return m.editor
	}

	// Check environment variables
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	if editor := os.Getenv("VISUAL"); editor != "" {
		return editor
	}

	return ""
}

// editWithExternalEditor opens an external editor for editing.
func (m *DefaultManager) editWithExternalEditor(editor, content string) (string, error) {
	tmpFile, err := os.CreateTemp("", "appversion-changelog-*.md")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.WriteString(content); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to write to temp file: %w", err)
	}
	tmpFile.Close()

	cmd := exec.Command(editor, tmpPath)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("editor failed: %w", err)
	}

	edited, err := os.ReadFile(tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to read edited file: %w", err)
	}

	return string(edited), nil
}

// editWithInlineEditor uses huh text area for inline editing.
func (m *DefaultManager) editWithInlineEditor(content string) (string, error) {
	edited := content

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Edit Changelog Section").
				Description("Edit below. Press Tab then Enter to save. Ctrl+C or Esc to cancel.").
				Value(&edited).
				CharLimit(0), // No limit
		),
	)

	if err := form.Run(); err != nil {
		return "", err
	}

	return edited, nil
}

// PromptConfirm asks a yes/no question with huh. Aborting the prompt counts as no.
func (m *DefaultManager) PromptConfirm(message string) (bool, error) {
	confirmed := true

	err := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return confirmed, nil
}

// ShowSpinner creates and returns a spinner for network steps.
func (m *DefaultManager) ShowSpinner(text string) Spinner {
	return newBubbleSpinner(text, m.out)
}

// bubbleSpinner implements Spinner using Bubble Tea.
type bubbleSpinner struct {
	text    string
	out     io.Writer
	program *tea.Program
	model   *spinnerModel
	done    chan struct{}
	mu      sync.Mutex
}

// spinnerModel is the Bubble Tea model for simple spinner.
type spinnerModel struct {
	spinner  spinner.Model
	text     string
	quitting bool
}

// spinnerTextMsg is sent to update spinner text from outside.
type spinnerTextMsg struct {
	text string
}

// spinnerQuitMsg signals the spinner to quit.
type spinnerQuitMsg struct{}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerTextMsg:
		m.text = msg.text
		return m, nil
	case spinnerQuitMsg:
		m.quitting = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.quitting {
		return ""
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), m.text)
}

func newBubbleSpinner(text string, out io.Writer) *bubbleSpinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &bubbleSpinner{
		text: text,
		out:  out,
		model: &spinnerModel{
			spinner: s,
			text:    text,
		},
	}
}

func (s *bubbleSpinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.program != nil {
		return
	}

	// The spinner reads no keys, so stdin is left to prompts.
	s.program = tea.NewProgram(s.model, tea.WithOutput(s.out), tea.WithInput(nil))
	s.done = make(chan struct{})
	go func(p *tea.Program, done chan struct{}) {
		defer close(done)
		_, _ = p.Run()
	}(s.program, s.done)
}

func (s *bubbleSpinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.program == nil {
		return
	}
	s.program.Send(spinnerQuitMsg{})
	<-s.done
	s.program = nil
}

func (s *bubbleSpinner) UpdateText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.text = text
	if s.program != nil {
		s.program.Send(spinnerTextMsg{text: text})
	}
}

// NonInteractiveManager implements Manager for non-interactive mode (--yes flag).
type NonInteractiveManager struct {
	colorEnabled bool
	out          io.Writer
	errOut       io.Writer
	styles       *styles
}

// NewNonInteractiveManager creates a new NonInteractiveManager.
func NewNonInteractiveManager(colorEnabled bool) *NonInteractiveManager {
	return NewNonInteractiveManagerWithOutput(colorEnabled, os.Stdout, os.Stderr)
}

// NewNonInteractiveManagerWithOutput creates a NonInteractiveManager writing to out and errOut.
func NewNonInteractiveManagerWithOutput(colorEnabled bool, out, errOut io.Writer) *NonInteractiveManager {
	return &NonInteractiveManager{
		colorEnabled: colorEnabled,
		out:          out,
		errOut:       errOut,
		styles:       newStyles(colorEnabled),
	}
}

// ShowInfo displays a progress message.
func (m *NonInteractiveManager) ShowInfo(message string) {
	fmt.Fprintln(m.out, m.styles.info.Render(message))
}

// ShowWarning displays a warning.
func (m *NonInteractiveManager) ShowWarning(message string) {
	fmt.Fprintln(m.errOut, m.styles.warning.Render(message))
}

// ShowSuccess displays a success message.
func (m *NonInteractiveManager) ShowSuccess(message string) {
	fmt.Fprintln(m.out, m.styles.success.Render(message))
}

// ShowError displays an error message.
func (m *NonInteractiveManager) ShowError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(m.errOut, "Error: %s\n", err.Error())
}

// DisplaySection prints the section without decoration.
func (m *NonInteractiveManager) DisplaySection(title, section string) {
	fmt.Fprintln(m.out, m.styles.title.Render(title))
	fmt.Fprint(m.out, section)
}

// PromptAction always returns ActionRelease in non-interactive mode.
func (m *NonInteractiveManager) PromptAction(string) (Action, error) {
	return ActionRelease, nil
}

// EditSection returns the section unchanged in non-interactive mode.
func (m *NonInteractiveManager) EditSection(section string) (string, error) {
	return section, nil
}

// PromptConfirm always returns true in non-interactive mode.
func (m *NonInteractiveManager) PromptConfirm(string) (bool, error) {
	return true, nil
}

// ShowSpinner returns a no-op spinner in non-interactive mode.
func (m *NonInteractiveManager) ShowSpinner(string) Spinner {
	return &noopSpinner{}
}

// noopSpinner is a no-op implementation of Spinner.
type noopSpinner struct{}

func (s *noopSpinner) Start()            {}
func (s *noopSpinner) Stop()             {}
func (s *noopSpinner) UpdateText(string) {}
