package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tagstamp/internal/catalog"
	"github.com/roach88/tagstamp/internal/model"
)

// ListReport is the list command result.
type ListReport struct {
	Templates []catalog.DocumentEntry `json:"templates"`
}

// Text renders one line per entry.
func (r ListReport) Text() string {
	var b strings.Builder
	for i, e := range r.Templates {
		if e.Separator {
			fmt.Fprintf(&b, "%3d  ---\n", i)
			continue
		}
		label := e.Name
		if label == "" {
			label = e.Tags.String()
		}
		fmt.Fprintf(&b, "%3d  %-24s %s  [%s]\n", i, label, e.ID, e.Tags.String())
	}
	return b.String()
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		Long: `List the templates and separators of the catalog in palette order.

An empty database lists the built-in templates.

Examples:
  tagstamp list
  tagstamp list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(_ context.Context, app *App) error {
				doc := catalog.NewDocument(app.Catalog.Entries())
				return rootOpts.formatter(cmd).Success(ListReport{Templates: doc.Templates})
			})
		},
	}
}

// findTemplate resolves ref as a template id, then as a case-insensitive
// display name.
func findTemplate(cat *catalog.Catalog, ref string) (*model.Template, bool) {
	if t, ok := cat.Template(ref); ok {
		return t, true
	}
	for _, e := range cat.Entries() {
		if t := model.AsTemplate(e); t != nil && strings.EqualFold(t.Label(), ref) {
			return t, true
		}
	}
	return nil, false
}
