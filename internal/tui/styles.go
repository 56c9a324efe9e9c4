package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	header, status, hint lipgloss.Style
	item, cursor, armed  lipgloss.Style
	separator            lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	base := r.NewStyle()
	return styles{
		header:    base.Bold(true),
		status:    base.Italic(true),
		hint:      base.Faint(true),
		item:      base,
		cursor:    base.Bold(true).Reverse(true),
		armed:     base.Bold(true).Foreground(lipgloss.Color("2")),
		separator: base.Faint(true),
	}
}
