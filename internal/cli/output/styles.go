package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles holds the text-mode styles. Off a terminal every style is plain.
type Styles struct {
	Header  lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles builds styles bound to the color profile of w.
func NewStyles(w io.Writer, isTTY bool) *Styles {
	if !isTTY {
		plain := lipgloss.NewStyle()
		return &Styles{
			Header: plain, Bold: plain, Muted: plain, Accent: plain,
			Success: plain, Warning: plain, Error: plain,
		}
	}

	r := lipgloss.NewRenderer(w)
	return &Styles{
		Header:  r.NewStyle().Foreground(lipgloss.Color("#A78BFA")).Bold(true),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		Accent:  r.NewStyle().Foreground(lipgloss.Color("#A78BFA")),
		Success: r.NewStyle().Foreground(lipgloss.Color("#22C55E")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("#EAB308")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("#EF4444")),
	}
}
