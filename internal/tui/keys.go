package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	up, down, left, right key.Binding
	apply, copy, paste    key.Binding
	arm, armSticky        key.Binding
	toggle, deactivate    key.Binding
	moveUp, moveDown      key.Binding
	remove, separator     key.Binding
	rename                key.Binding
	confirm, cancel       key.Binding
	submit                key.Binding
	quit                  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "left"),
		),
		right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "right"),
		),
		apply: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply"),
		),
		copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy"),
		),
		paste: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new node"),
		),
		arm: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "arm"),
		),
		armSticky: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "arm, no timeout"),
		),
		toggle: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle"),
		),
		deactivate: key.NewBinding(
			key.WithKeys("x", "esc"),
			key.WithHelp("x", "off"),
		),
		moveUp: key.NewBinding(
			key.WithKeys("K"),
			key.WithHelp("K", "move up"),
		),
		moveDown: key.NewBinding(
			key.WithKeys("J"),
			key.WithHelp("J", "move down"),
		),
		remove: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		separator: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "separator"),
		),
		rename: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rename"),
		),
		confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "confirm"),
		),
		cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "save"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp is the footer hint line.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.apply, k.toggle, k.deactivate, k.moveUp, k.moveDown, k.remove, k.separator, k.rename, k.quit}
}
