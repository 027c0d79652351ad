package ui

import "github.com/charmbracelet/lipgloss"

// Color palette. A single lime accent with grays for everything else.
const (
	ColorLime     = "154" // Primary accent, selections and matches
	ColorLimeDim  = "106" // Dimmed lime, focused borders
	ColorWhite    = "255" // Headers, file names
	ColorGray     = "245" // Secondary text, line ranges
	ColorDarkGray = "238" // Unfocused borders, separators
	ColorRed      = "196" // Errors
	ColorYellow   = "220" // Match counts
)

// Styles holds the lipgloss styles used by both the interactive
// interface and the text renderer.
type Styles struct {
	Header   lipgloss.Style
	FilePath lipgloss.Style
	Selected lipgloss.Style
	LineInfo lipgloss.Style
	Count    lipgloss.Style
	Match    lipgloss.Style
	Score    lipgloss.Style
	Dim      lipgloss.Style
	Error    lipgloss.Style

	PanelFocused lipgloss.Style
	PanelBlurred lipgloss.Style
	StatusBar    lipgloss.Style
}

// DefaultStyles returns the colored style set.
func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		FilePath: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color(ColorLime)),
		LineInfo: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Count:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Match:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Score:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLimeDim)),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),

		PanelFocused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorLimeDim)).
			Padding(0, 1),
		PanelBlurred: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),
		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
	}
}

// NoColorStyles returns an unstyled set for NO_COLOR and dumb terminals.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	bordered := lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	return Styles{
		Header:       plain,
		FilePath:     plain,
		Selected:     lipgloss.NewStyle().Reverse(true),
		LineInfo:     plain,
		Count:        plain,
		Match:        lipgloss.NewStyle().Bold(true),
		Score:        plain,
		Dim:          plain,
		Error:        plain,
		PanelFocused: bordered,
		PanelBlurred: bordered,
		StatusBar:    plain,
	}
}

// GetStyles picks the style set based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor || DetectNoColor() {
		return NoColorStyles()
	}
	return DefaultStyles()
}
