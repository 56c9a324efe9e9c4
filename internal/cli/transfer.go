package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tagstamp/internal/catalog"
	"github.com/roach88/tagstamp/internal/model"
)

// TransferReport is the import and export command result.
type TransferReport struct {
	Path      string `json:"path"`
	Entries   int    `json:"entries"`
	Templates int    `json:"templates"`
	Saved     bool   `json:"saved"`
}

func newTransferReport(path string, entries []model.Entry, saved bool) TransferReport {
	r := TransferReport{Path: path, Entries: len(entries), Saved: saved}
	for _, e := range entries {
		if !model.IsSeparator(e) {
			r.Templates++
		}
	}
	return r
}

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	DryRun bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the catalog from a YAML or CUE file",
		Long: `Replace the whole catalog with the templates in a file.

Files ending in .cue are validated against the catalog schema; anything
else is read as YAML. The catalog is left untouched on any error.

Examples:
  tagstamp import templates.yaml
  tagstamp import templates.cue --dry-run`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, app *App) error {
				return runImport(ctx, opts, app, args[0], cmd)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "validate the file without saving")

	return cmd
}

func runImport(ctx context.Context, opts *ImportOptions, app *App, path string, cmd *cobra.Command) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read catalog file", err)
	}
	entries, err := decodeCatalogFile(path, data)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid catalog file", err)
	}
	if err := app.Catalog.Replace(entries); err != nil {
		return WrapExitError(ExitFailure, "invalid catalog file", err)
	}

	saved := false
	if !opts.DryRun {
		if err := app.Catalog.Save(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to save catalog", err)
		}
		saved = true
	}
	opts.formatter(cmd).VerboseLog("imported %s", path)
	return opts.formatter(cmd).Success(newTransferReport(path, app.Catalog.Entries(), saved))
}

func decodeCatalogFile(path string, data []byte) ([]model.Entry, error) {
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return catalog.LoadCUE(data, filepath.Base(path))
	}
	return catalog.ImportYAML(bytes.NewReader(data))
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the catalog as YAML",
		Long: `Write the catalog as a YAML document that import accepts.

Without a file argument, or with "-", the document goes to stdout.

Examples:
  tagstamp export templates.yaml
  tagstamp export > templates.yaml`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return withApp(rootOpts, cmd, func(_ context.Context, app *App) error {
				return runExport(rootOpts, app, path, cmd)
			})
		},
	}
}

func runExport(opts *RootOptions, app *App, path string, cmd *cobra.Command) error {
	entries := app.Catalog.Entries()
	if path == "-" {
		if err := catalog.ExportYAML(cmd.OutOrStdout(), entries); err != nil {
			return WrapExitError(ExitCommandError, "failed to export catalog", err)
		}
		return nil
	}

	var buf bytes.Buffer
	if err := catalog.ExportYAML(&buf, entries); err != nil {
		return WrapExitError(ExitCommandError, "failed to export catalog", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to write %s", path), err)
	}
	return opts.formatter(cmd).Success(newTransferReport(path, entries, true))
}

// Text renders a one-line summary.
func (r TransferReport) Text() string {
	verb := "validated"
	if r.Saved {
		verb = "wrote"
	}
	return fmt.Sprintf("%s %d templates (%d entries): %s\n", verb, r.Templates, r.Entries, r.Path)
}
