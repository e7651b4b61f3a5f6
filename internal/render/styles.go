/*
Copyright © 2025 Deployfish Contributors
SPDX-License-Identifier: BSD-3-Clause
*/
package render

import (
	"os"

	"github.com/charmbracelet/lipgloss/v2"
)

// ShouldUseColour determines whether styled output is appropriate.
// Returns false if:
// - NO_COLOR environment variable is set
// - DEPLOYFISH_PLAIN environment variable is set
// - TERM is "dumb" or empty
// - stdout is not a TTY
func ShouldUseColour() bool {
	if os.Getenv("DEPLOYFISH_PLAIN") != "" {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	term := os.Getenv("TERM")
	if term == "dumb" || term == "" {
		return false
	}
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// Styles contains the styles for rendering command output
type Styles struct {
	// Change type styles
	Added    lipgloss.Style
	Removed  lipgloss.Style
	Modified lipgloss.Style

	// Header styles
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style

	// Content styles
	Key    lipgloss.Style
	Value  lipgloss.Style
	Subtle lipgloss.Style
	Bold   lipgloss.Style

	// Semantic styles
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	// Whether colours are enabled
	UseColour bool
}

// Colours are optimised based on terminal background (dark vs light).
func NewStyles(useColour bool) *Styles {
	s := &Styles{UseColour: useColour}

	if useColour {
		// Detect terminal background and select appropriate colours
		hasDark := lipgloss.HasDarkBackground(os.Stdin, os.Stdout)

		var (
			headerText  string
			warningText string
			successText string
			keyText     string
			subtleText  string
			errorText   string
		)

		if hasDark {
			// Dark background colours - optimised for readability on dark terminals
			headerText = "12"  // Bright Blue
			warningText = "11" // Yellow
			successText = "10" // Green
			keyText = "14"     // Cyan
			subtleText = "8"   // Dark Grey
			errorText = "9"    // Red
		} else {
			// Light background colours - optimised for readability on light terminals
			headerText = "4"  // Blue
			warningText = "3" // Yellow/Brown
			successText = "2" // Green
			keyText = "6"     // Cyan
			subtleText = "8"  // Grey
			errorText = "1"   // Red
		}

		// Change type colours - use explicit ANSI colours for diff consistency
		// (traditional red/green diff colours are universal and expected)
		s.Added = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")) // ANSI Green for additions

		s.Removed = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")) // ANSI Red for removals

		s.Modified = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")) // ANSI Yellow for modifications

		s.Header = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color(subtleText)).
			Padding(0, 1)

		s.HeaderTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(headerText))

		s.Key = lipgloss.NewStyle().
			Foreground(lipgloss.Color(keyText))

		s.Value = lipgloss.NewStyle()

		s.Subtle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(subtleText))

		s.Bold = lipgloss.NewStyle().Bold(true)

		s.Success = lipgloss.NewStyle().
			Foreground(lipgloss.Color(successText))

		s.Warning = lipgloss.NewStyle().
			Foreground(lipgloss.Color(warningText)).
			Bold(true)

		s.Error = lipgloss.NewStyle().
			Foreground(lipgloss.Color(errorText)).
			Bold(true)
	} else {
		// No colour - all styles are plain passthroughs
		plain := lipgloss.NewStyle()
		s.Added = plain
		s.Removed = plain
		s.Modified = plain
		s.Header = plain
		s.HeaderTitle = plain
		s.Key = plain
		s.Value = plain
		s.Subtle = plain
		s.Bold = plain
		s.Success = plain
		s.Warning = plain
		s.Error = plain
	}

	return s
}
