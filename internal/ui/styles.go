package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	ColorPrimary   = lipgloss.Color("205") // Pink
	ColorSecondary = lipgloss.Color("241") // Gray
	ColorSuccess   = lipgloss.Color("42")  // Green
	ColorError     = lipgloss.Color("160") // Red
	ColorWarning   = lipgloss.Color("214") // Orange/Yellow
	ColorText      = lipgloss.Color("252") // White/Gray
	ColorCyan      = lipgloss.Color("87")  // Cyan for thinking traces
	ColorBlue      = lipgloss.Color("75")  // Blue for paragraph markers

	// Base Styles
	StyleTitle   = lipgloss.NewStyle().Foreground(ColorText).Bold(true)
	StyleSubtle  = lipgloss.NewStyle().Foreground(ColorSecondary)
	StylePrimary = lipgloss.NewStyle().Foreground(ColorPrimary)
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleText    = lipgloss.NewStyle().Foreground(ColorText)

	// Diff Styles for highlight rendering
	StyleDiffRemoved = lipgloss.NewStyle().Foreground(ColorError).Strikethrough(true)
	StyleDiffAdded   = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleDiffSame    = lipgloss.NewStyle().Foreground(ColorText)

	// Suggestion Box - one boxed suggestion with its diff
	StyleSuggestionBox = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(ColorSecondary).
				Padding(0, 1)

	// Preview Box - the active inline preview (green accent)
	StylePreviewBox = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorSuccess).
			Padding(0, 1)

	// Trace Box - thinking/action/observation log
	StyleTraceBox = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorCyan).
			Padding(0, 1)

	// Components
	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true).
			Padding(0, 1)

	// Semantic Prefix Styles
	StylePrefixThinking    = lipgloss.NewStyle().Foreground(ColorSecondary)
	StylePrefixAction      = lipgloss.NewStyle().Foreground(ColorCyan).Bold(true)
	StylePrefixObservation = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePrefixDone        = lipgloss.NewStyle().Foreground(ColorSuccess)
	StylePrefixWarn        = lipgloss.NewStyle().Foreground(ColorWarning)
	StylePrefixError       = lipgloss.NewStyle().Foreground(ColorError).Bold(true)

	// Priority Styles keyed off the suggestion priority
	StylePriorityHigh   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StylePriorityMedium = lipgloss.NewStyle().Foreground(ColorWarning)
	StylePriorityLow    = lipgloss.NewStyle().Foreground(ColorSecondary)
)

// Icon returns a styled icon string
func Icon(icon string, style lipgloss.Style) string {
	return style.Render(icon)
}
