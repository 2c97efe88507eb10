// Package ui renders a running session in the terminal, either as a
// bubbletea TUI or as plain console lines.
package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rbright/voxscribe/internal/session"
)

const maxOutputLines = 500

// Controls is the session surface driven by keys and console commands.
type Controls interface {
	Toggle() error
	Save() error
	End() error
	Clear() error
	Exit() error
}

// StatusMsg carries a session status update.
type StatusMsg struct {
	Kind    session.StatusKind
	Message string
}

// OutputMsg appends one line to the output pane.
type OutputMsg struct {
	Line string
}

// ClearOutputMsg empties the output pane.
type ClearOutputMsg struct{}

// StateMsg carries a new session snapshot.
type StateMsg struct {
	Snapshot session.Snapshot
}

// SessionDoneMsg reports that the controller stopped running.
type SessionDoneMsg struct{}

// actionDoneMsg reports the result of a key-triggered action.
type actionDoneMsg struct {
	err error
}

// Model is the root bubbletea model.
type Model struct {
	controls Controls

	snapshot   session.Snapshot
	statusKind session.StatusKind
	statusText string
	lines      []string

	width  int
	height int
}

// NewModel builds a model bound to controls.
func NewModel(controls Controls, snapshot session.Snapshot) Model {
	return Model{
		controls:   controls,
		snapshot:   snapshot,
		statusKind: session.StatusInfo,
		statusText: "Ready",
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case StatusMsg:
		m.statusKind = msg.Kind
		m.statusText = msg.Message
		return m, nil

	case OutputMsg:
		m.lines = append(m.lines, msg.Line)
		if len(m.lines) > maxOutputLines {
			m.lines = m.lines[len(m.lines)-maxOutputLines:]
		}
		return m, nil

	case ClearOutputMsg:
		m.lines = nil
		return m, nil

	case StateMsg:
		m.snapshot = msg.Snapshot
		return m, nil

	case actionDoneMsg:
		return m, nil

	case SessionDoneMsg:
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Sequence(action(m.controls.Exit), tea.Quit)
	case " ", "r":
		if m.snapshot.Processing {
			return m, nil
		}
		return m, action(m.controls.Toggle)
	case "s":
		return m, action(m.controls.Save)
	case "e":
		return m, action(m.controls.End)
	case "c":
		return m, action(m.controls.Clear)
	}
	return m, nil
}

// action runs a controller call off the event loop; results surface as
// status messages from the session itself.
func action(fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{err: fn()}
	}
}

func (m Model) View() string {
	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatus())
	sections = append(sections, dividerStyle.Render(strings.Repeat("─", m.dividerWidth())))
	sections = append(sections, m.renderOutput()...)
	sections = append(sections, dividerStyle.Render(strings.Repeat("─", m.dividerWidth())))
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	label := m.snapshot.Mode
	if label == session.ModeVoice {
		label = "voice"
	}
	return titleStyle.Render("VOXSCRIBE") + modeStyle.Render(" ["+label+" mode]")
}

func (m Model) renderStatus() string {
	var dot string
	switch {
	case m.snapshot.Recording:
		dot = recordingDotStyle.Render("● REC")
	case m.snapshot.Processing:
		dot = processingDotStyle.Render("◌ BUSY")
	default:
		dot = idleDotStyle.Render("○ IDLE")
	}

	style, ok := statusStyles[string(m.statusKind)]
	if !ok {
		style = statusStyles[string(session.StatusInfo)]
	}
	return dot + "  " + style.Render(m.statusText)
}

func (m Model) renderOutput() []string {
	visible := m.outputHeight()
	lines := m.lines
	if visible > 0 && len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, outputStyle.Render(truncateToWidth(line, m.width)))
	}
	return out
}

func (m Model) renderFooter() string {
	record := " Record"
	if m.snapshot.Recording {
		record = " Stop"
	}
	parts := []string{
		footerKeyStyle.Render("Space") + footerDescStyle.Render(record),
		footerKeyStyle.Render("s") + footerDescStyle.Render(" Save"),
		footerKeyStyle.Render("e") + footerDescStyle.Render(" End"),
		footerKeyStyle.Render("c") + footerDescStyle.Render(" Clear"),
		footerKeyStyle.Render("q") + footerDescStyle.Render(" Quit"),
	}
	return strings.Join(parts, "  ")
}

func (m Model) outputHeight() int {
	// header, status, two dividers, footer
	return m.height - 5
}

func (m Model) dividerWidth() int {
	if m.width <= 0 {
		return 40
	}
	return m.width
}

func truncateToWidth(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
