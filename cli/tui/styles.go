// Package tui provides the Bubble Tea live status view for xcoffee watch.
//
// The view is opt-in (--tui) and read-only: it shows the driver phase, the
// latest status line, the latest frame and session counters. The only input
// it accepts is quitting.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette, roughly a cup of coffee.
var (
	roastColor  = lipgloss.Color("#C08457") // crema
	streamColor = lipgloss.Color("#22C55E") // frames flowing
	dialColor   = lipgloss.Color("#EAB308") // dialing
	lostColor   = lipgloss.Color("#DC2626") // waiting to reconnect
	dimColor    = lipgloss.Color("#78716C")
	bytesColor  = lipgloss.Color("#38BDF8")
	plainColor  = lipgloss.Color("#FAFAF9")
)

// Stat box accent colors.
var (
	successColor   = streamColor
	warningColor   = dialColor
	errorColor     = lostColor
	highlightColor = bytesColor
)

var (
	// TitleStyle renders the view header.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(roastColor).MarginBottom(1)

	// LabelStyle renders the fixed-width field labels.
	LabelStyle = lipgloss.NewStyle().Foreground(dimColor).Width(12)

	ValueStyle = lipgloss.NewStyle().Foreground(plainColor)
	ErrorStyle = lipgloss.NewStyle().Foreground(lostColor)
	HelpStyle  = lipgloss.NewStyle().Foreground(dimColor).MarginTop(1)

	// StatBoxStyle frames one counter; renderStatBox sets the border color.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(16).
			Align(lipgloss.Center)

	StatLabelStyle = lipgloss.NewStyle().Foreground(dimColor)
	StatValueStyle = lipgloss.NewStyle().Bold(true)
)

// phaseStyles colors the phase name. Stopped uses ValueStyle.
var phaseStyles = map[Phase]lipgloss.Style{
	PhaseConnecting: lipgloss.NewStyle().Foreground(dialColor),
	PhaseStreaming:  lipgloss.NewStyle().Foreground(streamColor).Bold(true),
	PhaseSleeping:   lipgloss.NewStyle().Foreground(lostColor),
}

// PhaseStyle returns the style for the given driver phase.
func PhaseStyle(phase Phase) lipgloss.Style {
	if s, ok := phaseStyles[phase]; ok {
		return s
	}
	return ValueStyle
}
