package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tagstamp/internal/engine"
	"github.com/roach88/tagstamp/internal/model"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Geometry string
	Tags     []string
	Ctrl     bool
	Shift    bool
	Editing  bool
	Snippet  bool
}

// CheckReport is the check command result.
type CheckReport struct {
	Template   string           `json:"template"`
	Target     model.Target     `json:"target"`
	Compatible bool             `json:"compatible"`
	Applicable bool             `json:"applicable"`
	Mutations  []model.Mutation `json:"mutations"`
	Snippet    string           `json:"snippet,omitempty"`
}

// Text renders the verdict followed by one line per mutation.
func (r CheckReport) Text() string {
	var b strings.Builder
	verdict := "not applicable"
	switch {
	case r.Compatible:
		verdict = "compatible"
	case r.Applicable:
		verdict = "applicable to new untagged point"
	}
	fmt.Fprintf(&b, "%s on %s: %s\n", r.Template, r.Target.Geometry, verdict)
	for _, m := range r.Mutations {
		if m.Remove {
			fmt.Fprintf(&b, "  - %s\n", m.Key)
		} else {
			fmt.Fprintf(&b, "  + %s=%s\n", m.Key, m.Value)
		}
	}
	if r.Snippet != "" {
		b.WriteString(r.Snippet)
	}
	return b.String()
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <template>",
		Short: "Check a template against a target",
		Long: `Report whether a template is compatible with a target feature and
which tag mutations applying it would make.

The template is named by id or by display name. The target is described
by --geometry (point|open|closed) and repeated --tag key=value flags.

Exit codes:
  0 - Template is applicable
  1 - Template is not applicable
  2 - Command error (unknown template, bad flag, etc.)

Examples:
  tagstamp check Bench --tag amenity=bench
  tagstamp check Building --geometry closed --ctrl`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, app *App) error {
				return runCheck(ctx, opts, app, args[0], cmd)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Geometry, "geometry", "point", "target geometry (point|open|closed)")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag", nil, "target tag as key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Ctrl, "ctrl", false, "apply with the ctrl modifier")
	cmd.Flags().BoolVar(&opts.Shift, "shift", false, "apply with the shift modifier")
	cmd.Flags().BoolVar(&opts.Editing, "editing", false, "the editor is in edit mode")
	cmd.Flags().BoolVar(&opts.Snippet, "snippet", false, "also print the node snippet copied on double click")

	return cmd
}

func runCheck(ctx context.Context, opts *CheckOptions, app *App, ref string, cmd *cobra.Command) error {
	tmpl, ok := findTemplate(app.Catalog, ref)
	if !ok {
		return errUnknownTemplate(ref)
	}
	target, err := parseTarget(opts.Geometry, opts.Tags)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid target", err)
	}

	cfg := engine.LoadConfig(ctx, app.Store, app.Log)
	result := engine.Synchronize(tmpl, target, engine.SyncOptions{
		Ctrl:                     opts.Ctrl,
		Shift:                    opts.Shift,
		DeactivateIfIncompatible: cfg.DeactivateIfIncompatible,
		EditMode:                 opts.Editing,
	})

	report := CheckReport{
		Template:   tmpl.Label(),
		Target:     target,
		Compatible: engine.IsCompatible(tmpl, target),
		Applicable: result.Applicable,
		Mutations:  result.Mutations,
	}
	if report.Mutations == nil {
		report.Mutations = []model.Mutation{}
	}
	if opts.Snippet {
		report.Snippet = engine.NodeSnippet(tmpl)
	}

	if err := opts.formatter(cmd).Success(report); err != nil {
		return err
	}
	if !report.Applicable {
		return NewExitError(ExitFailure, fmt.Sprintf("%s is not applicable to the target", report.Template))
	}
	return nil
}

func parseTarget(geometry string, tags []string) (model.Target, error) {
	g, err := model.ParseGeometry(geometry)
	if err != nil {
		return model.Target{}, err
	}
	target := model.Target{Geometry: g, Tags: make(map[string]string, len(tags))}
	for _, s := range tags {
		tag, err := model.ParseTag(s)
		if err != nil {
			return model.Target{}, err
		}
		target.Tags[tag.Key] = tag.Value
	}
	return target, nil
}
