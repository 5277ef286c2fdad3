// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette shared by all CLI output, tuned for dark terminal backgrounds.
const (
	// ColorPrimary is used for titles and section headers.
	ColorPrimary = lipgloss.Color("#7C3AED")

	// ColorMuted is used for subtitles and unset values.
	ColorMuted = lipgloss.Color("#6B7280")

	// ColorSuccess marks enabled features.
	ColorSuccess = lipgloss.Color("#10B981")

	// ColorError is used for failures.
	ColorError = lipgloss.Color("#EF4444")

	// ColorWarning is used for caution states.
	ColorWarning = lipgloss.Color("#F59E0B")

	// ColorHighlight is used for keys and commands.
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for primary headers and section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for secondary headers and descriptions.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle is for positive indicators.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle is for error messages.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for warnings.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// KeyStyle is for setting names and configuration keys.
	KeyStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)

	// keyColumnStyle pads the name column of `trainrun env`.
	keyColumnStyle = KeyStyle.Width(32)
)
