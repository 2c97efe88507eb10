package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorRed     = lipgloss.Color("#FF5F5F")
	colorGreen   = lipgloss.Color("#5FD75F")
	colorYellow  = lipgloss.Color("#FFD75F")
	colorCyan    = lipgloss.Color("#5FD7FF")
	colorGray    = lipgloss.Color("#808080")
	colorDimGray = lipgloss.Color("#4E4E4E")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	modeStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	recordingDotStyle = lipgloss.NewStyle().
				Foreground(colorRed).
				Bold(true)

	processingDotStyle = lipgloss.NewStyle().
				Foreground(colorYellow).
				Bold(true)

	idleDotStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	dividerStyle = lipgloss.NewStyle().
			Foreground(colorDimGray)

	outputStyle = lipgloss.NewStyle()

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	footerDescStyle = lipgloss.NewStyle().
			Foreground(colorGray)
)

// statusStyles colors the status line by session.StatusKind.
var statusStyles = map[string]lipgloss.Style{
	"info":       lipgloss.NewStyle().Foreground(colorCyan),
	"error":      lipgloss.NewStyle().Foreground(colorRed).Bold(true),
	"success":    lipgloss.NewStyle().Foreground(colorGreen),
	"recording":  lipgloss.NewStyle().Foreground(colorRed),
	"processing": lipgloss.NewStyle().Foreground(colorYellow),
}
