// Package theme holds the terminal styles used by the trackmate commands.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/trackmate/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for section titles.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// HelpStyle is used for hints and secondary text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// ErrorStyle highlights failures.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// SuccessStyle highlights completed actions.
var SuccessStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGreen)

// BorderStyle provides a standard rounded border for panels.
var BorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder).
	Padding(0, 1)

// StatusStyle returns a color-coded style for a job application status.
func StatusStyle(status model.JobStatus) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch status {
	case model.JobStatusApplied:
		return base.Foreground(ColorBlue)
	case model.JobStatusScreening:
		return base.Foreground(ColorYellow)
	case model.JobStatusInterview:
		return base.Foreground(ColorMagenta)
	case model.JobStatusOffer:
		return base.Foreground(ColorOrange)
	case model.JobStatusAccepted:
		return base.Foreground(ColorGreen)
	case model.JobStatusRejected:
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGray)
	}
}

// SourceLabelStyle returns a color-coded style for the given source type.
func SourceLabelStyle(sourceType model.SourceType) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch sourceType {
	case model.SourceTypeGmail:
		return base.Foreground(ColorRed)
	case model.SourceTypeIMAP:
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
