package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/jimm98y/EgonAPI/internal/egon"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - success, lights on
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors
	WarningColor = lipgloss.Color("#FFA500") // Orange - warnings, moving blinds
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info, disabled elements
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
	AccentColor  = lipgloss.Color("#FF8B94") // Pink - recent changes
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
)

// Shared styles
var (
	// HeaderTitleStyle is for the main command title (e.g., "MODULE STATE")
	HeaderTitleStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Bold(true).
				PaddingLeft(2)

	// HeaderCommandStyle is for the command path (e.g., "egon show")
	HeaderCommandStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				PaddingLeft(2)

	// HeaderParamKeyStyle is for parameter keys (e.g., "Module:")
	HeaderParamKeyStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				PaddingLeft(2)

	// HeaderParamValueStyle is for parameter values (e.g., "192.168.1.20")
	HeaderParamValueStyle = lipgloss.NewStyle().
				Foreground(TextColor)

	SuccessTitleStyle = lipgloss.NewStyle().
				Foreground(SuccessColor).
				Bold(true)

	ErrorTitleStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)

	// ResultKeyStyle is for result detail keys
	ResultKeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(15)

	ResultValueStyle = lipgloss.NewStyle().
				Foreground(TextColor)

	TroubleshootingTitleStyle = lipgloss.NewStyle().
					Foreground(MutedColor).
					Bold(true)

	TroubleshootingItemStyle = lipgloss.NewStyle().
					Foreground(MutedColor)

	// GroupTitleStyle is for group headings in element tables
	GroupTitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	// ElementIDStyle is for the id column
	ElementIDStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(7)

	// ElementNameStyle is for the name column
	ElementNameStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Width(28)

	// ElementTypeStyle is for the type column
	ElementTypeStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				Width(10)

	// ChangeTimeStyle is for timestamps in the change log
	ChangeTimeStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// ChangeMarkerStyle highlights elements that changed recently
	ChangeMarkerStyle = lipgloss.NewStyle().
				Foreground(AccentColor).
				Bold(true)
)

// Markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	ChangeMarker  = "●"
)

// StateStyle returns the style for an element value. Lights are green when
// on, blinds orange while moving, disabled elements muted.
func StateStyle(value string, enabled bool) lipgloss.Style {
	style := lipgloss.NewStyle().Foreground(TextColor)
	if !enabled {
		return style.Foreground(MutedColor)
	}

	switch value {
	case egon.StateOn:
		return style.Foreground(SuccessColor).Bold(true)
	case egon.StateOff:
		return style.Foreground(MutedColor)
	case egon.StateUpRun, egon.StateDownRun:
		return style.Foreground(WarningColor).Bold(true)
	default:
		return style
	}
}

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// clampWidth keeps a width inside the supported range
func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// HeaderBorderStyle returns the border style for command headers
func HeaderBorderStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2) // Account for border characters
}

// RenderHorizontalDivider creates a horizontal line of the specified width
func RenderHorizontalDivider(width int, char string) string {
	return lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat(char, width))
}
