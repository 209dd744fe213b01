package main

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	primary = lipgloss.Color("#7C3AED") // Purple
	success = lipgloss.Color("#10B981") // Green
	danger  = lipgloss.Color("#EF4444") // Red
	muted   = lipgloss.Color("#6B7280") // Gray
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(primary).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(success)
	errorStyle   = lipgloss.NewStyle().Foreground(danger).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	idStyle      = lipgloss.NewStyle().Foreground(primary)
)

// statusStyle colors a job status
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "completed":
		return successStyle
	case "failed":
		return errorStyle
	default:
		return mutedStyle
	}
}
