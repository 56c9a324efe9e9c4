package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/tagstamp/internal/model"
)

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.header.Render(m.headerText()))
	b.WriteString("\n\n")
	b.WriteString(m.body())
	b.WriteString("\n\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m *Model) headerText() string {
	s := m.state
	text := "tagstamp  auto-apply off"
	if s.Armed {
		text = "tagstamp  auto-apply on"
		if t, ok := m.catalog.Template(s.TemplateID); ok {
			text += "  " + t.Label()
		}
		if s.SuppressAutoOff {
			text += "  no timeout"
		} else {
			remaining := time.Duration(s.RemainingMs) * time.Millisecond
			text += fmt.Sprintf("  %.1fs", remaining.Seconds())
		}
	}
	if s.Modifiers != (model.Modifiers{}) {
		text += "  [" + s.Modifiers.String() + "]"
	}
	return text
}

func (m *Model) body() string {
	width := max(m.width/max(len(m.columns), 1), 4)
	blocks := make([]string, 0, len(m.columns))
	for c, column := range m.columns {
		lines := make([]string, 0, len(column))
		for r, e := range column {
			line := m.renderEntry(e, width, c == m.col && r == m.row)
			lines = append(lines, m.renderer.PlaceHorizontal(width, lipgloss.Left, line))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, blocks...)
}

func (m *Model) renderEntry(e model.Entry, width int, cursor bool) string {
	t := model.AsTemplate(e)
	if t == nil {
		return m.styles.separator.Render("  " + strings.Repeat("-", width-4))
	}

	prefix, style := "  ", m.styles.item
	if m.state.Armed && m.state.TemplateID == t.ID {
		prefix, style = "* ", m.styles.armed
	}
	if cursor {
		prefix, style = "> ", m.styles.cursor
	}
	return style.Render(prefix + truncate(t.Label(), width-3))
}

func (m *Model) footer() string {
	switch {
	case m.mode == modeRename:
		return m.input.View()
	case m.status != "":
		return m.styles.status.Render(m.status)
	}
	bindings := m.keys.ShortHelp()
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return m.styles.hint.Render(strings.Join(parts, "  "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
