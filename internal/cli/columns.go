package cli

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/roach88/tagstamp/internal/layout"
	"github.com/roach88/tagstamp/internal/model"
)

const (
	minColumnWidth = 18
	// columnChrome is the palette's header and footer height.
	columnChrome = 4
)

// ColumnsOptions holds flags for the columns command.
type ColumnsOptions struct {
	*RootOptions
	Columns int
	Height  int
}

// ColumnsReport is the columns command result.
type ColumnsReport struct {
	Params  layout.Params `json:"params"`
	Columns [][]string    `json:"columns"`

	text string
}

// Text returns the side-by-side rendering.
func (r ColumnsReport) Text() string { return r.text }

// NewColumnsCommand creates the columns command.
func NewColumnsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ColumnsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "columns",
		Short: "Render the catalog partitioned into columns",
		Long: `Partition the catalog into columns the way the palette does.

Column count and height default to the terminal size when stdout is a
terminal, and to a single column of 20 rows otherwise. Separators are
shown as "---" in JSON output.

Examples:
  tagstamp columns
  tagstamp columns --columns 3 --height 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(_ context.Context, app *App) error {
				return runColumns(opts, app, cmd)
			})
		},
	}

	cmd.Flags().IntVar(&opts.Columns, "columns", 0, "number of columns (0 = fit terminal width)")
	cmd.Flags().IntVar(&opts.Height, "height", 0, "column height in rows (0 = fit terminal height)")

	return cmd
}

func runColumns(opts *ColumnsOptions, app *App, cmd *cobra.Command) error {
	if opts.Columns < 0 || opts.Height < 0 {
		return NewExitError(ExitCommandError, "--columns and --height must not be negative")
	}
	params, width := columnParams(opts.Columns, opts.Height, terminalSize)
	columns := layout.Partition(app.Catalog.Entries(), params)

	report := ColumnsReport{Params: params, Columns: make([][]string, len(columns))}
	for i, col := range columns {
		report.Columns[i] = make([]string, len(col))
		for j, e := range col {
			if t := model.AsTemplate(e); t != nil {
				report.Columns[i][j] = t.Label()
			} else {
				report.Columns[i][j] = "---"
			}
		}
	}

	colWidth := width / max(len(columns), 1)
	report.text = renderColumns(lipgloss.NewRenderer(cmd.OutOrStdout()), columns, colWidth)
	return opts.formatter(cmd).Success(report)
}

// terminalSize reports stdout's size, or false when stdout is not a
// terminal.
func terminalSize() (width, height int, ok bool) {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0, 0, false
	}
	w, h, err := term.GetSize(fd)
	if err != nil {
		return 0, 0, false
	}
	return w, h, true
}

// columnParams fills unset flags from the terminal size, or from
// layout.DefaultParams when there is no terminal. It also returns the
// total render width.
func columnParams(columns, height int, size func() (int, int, bool)) (layout.Params, int) {
	p := layout.DefaultParams
	width := p.Columns * (minColumnWidth + 6)

	if w, h, ok := size(); ok {
		width = w
		p.Columns = layout.ColumnsFor(w, minColumnWidth)
		p.ViewportHeight = max(h-columnChrome, 1)
	}
	if columns > 0 {
		p.Columns = columns
		width = max(width, columns*minColumnWidth)
	}
	if height > 0 {
		p.ViewportHeight = height
	}
	return p, width
}

func renderColumns(r *lipgloss.Renderer, columns [][]model.Entry, width int) string {
	if len(columns) == 0 {
		return ""
	}
	style := r.NewStyle().Width(width)
	blocks := make([]string, len(columns))
	for i, col := range columns {
		lines := make([]string, len(col))
		for j, e := range col {
			lines[j] = columnLine(e, width)
		}
		blocks[i] = style.Render(strings.Join(lines, "\n"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, blocks...) + "\n"
}

func columnLine(e model.Entry, width int) string {
	t := model.AsTemplate(e)
	if t == nil {
		return strings.Repeat("-", max(width-2, 1))
	}
	label := []rune(t.Label())
	if limit := max(width-2, 1); len(label) > limit {
		label = append(label[:limit-1], '~')
	}
	return string(label)
}
