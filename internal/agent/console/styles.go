package console

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorPrimary = lipgloss.Color("#00D4FF") // Cyan
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Yellow/Orange
	colorError   = lipgloss.Color("#EF4444") // Red
	colorMuted   = lipgloss.Color("#6B7280") // Gray
	colorDim     = lipgloss.Color("#4B5563") // Darker gray
)

// Transcript styles
var (
	speakerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	recipientStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	nextSpeakerStyle = lipgloss.NewStyle().
				Foreground(colorWarning)

	separatorStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	finalStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSuccess)
)

// Input styles
var (
	inputPromptStyle = lipgloss.NewStyle().
				Foreground(colorSuccess).
				Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)
)
