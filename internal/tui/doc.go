// Package tui is the terminal palette: the catalog laid out in columns that
// fit the window, with keys for the click gestures, the auto-apply toggle
// and catalog editing.
//
// Moves (K/J) are kept in memory until the next non-move key or quit, then
// saved in one write. Deletes, renames and new separators are saved at once.
package tui
