// Package layout partitions the ordered catalog into display columns.
//
// Partition is a greedy, order-preserving height pack: entries are never
// reordered, duplicated or dropped, so concatenating the columns always
// reproduces the input minus leading and trailing separators. Heights are
// bookkeeping units (terminal rows in the palette), not pixels.
package layout

import "github.com/roach88/tagstamp/internal/model"

// Params sizes a partition.
type Params struct {
	// Columns is the number of columns to produce at most.
	Columns int `json:"columns"`

	// ViewportHeight is the visible height of one column.
	ViewportHeight int `json:"viewport_height"`

	// RowHeight is the height of a template row.
	RowHeight int `json:"row_height"`

	// SeparatorHeight is the height of a separator row.
	SeparatorHeight int `json:"separator_height"`
}

// DefaultParams is used by the palette and the columns command when the
// terminal size is unknown.
var DefaultParams = Params{
	Columns:         1,
	ViewportHeight:  20,
	RowHeight:       1,
	SeparatorHeight: 1,
}

// entryHeight returns the bookkeeping height of a single entry.
func (p Params) entryHeight(e model.Entry) int {
	if model.IsSeparator(e) {
		return p.SeparatorHeight
	}
	return p.RowHeight
}

// Strip removes leading and trailing separators.
func Strip(entries []model.Entry) []model.Entry {
	start, end := 0, len(entries)
	for start < end && model.IsSeparator(entries[start]) {
		start++
	}
	for end > start && model.IsSeparator(entries[end-1]) {
		end--
	}
	return entries[start:end]
}

// Partition splits entries into at most p.Columns columns.
//
// A column is closed once it holds more than its quota of entries and its
// height exceeds the viewport; the entry that overflowed opens the next
// column, and the quota is recomputed over what remains. Whatever is left
// when the last column is reached stays in the last column.
func Partition(entries []model.Entry, p Params) [][]model.Entry {
	entries = Strip(entries)
	if p.Columns <= 1 || len(entries) == 0 {
		return [][]model.Entry{entries}
	}

	columns := make([][]model.Entry, 0, p.Columns)
	quota := ceilDiv(len(entries), p.Columns)
	start, used, count := 0, 0, 0

	for i, e := range entries {
		h := p.entryHeight(e)
		used += h
		count++

		if count > quota && used > p.ViewportHeight && len(columns) < p.Columns-1 {
			columns = append(columns, entries[start:i:i])
			start = i
			remaining := len(entries) - i
			quota = ceilDiv(remaining, p.Columns-len(columns))
			used, count = h, 1
		}
	}
	return append(columns, entries[start:])
}

// Locate finds entry by identity. It returns the column and row of the first
// occurrence.
func Locate(columns [][]model.Entry, entry model.Entry) (col, row int, ok bool) {
	if entry == nil {
		return 0, 0, false
	}
	for c, column := range columns {
		for r, e := range column {
			if e == entry {
				return c, r, true
			}
		}
	}
	return 0, 0, false
}

// Flatten concatenates columns back into a single list.
func Flatten(columns [][]model.Entry) []model.Entry {
	n := 0
	for _, column := range columns {
		n += len(column)
	}
	out := make([]model.Entry, 0, n)
	for _, column := range columns {
		out = append(out, column...)
	}
	return out
}

// Height returns the accumulated height of a column.
func Height(column []model.Entry, p Params) int {
	total := 0
	for _, e := range column {
		total += p.entryHeight(e)
	}
	return total
}

// ColumnsFor returns how many columns of at least minColumnWidth fit into
// width. It never returns less than one.
func ColumnsFor(width, minColumnWidth int) int {
	if minColumnWidth <= 0 || width < minColumnWidth {
		return 1
	}
	return width / minColumnWidth
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
