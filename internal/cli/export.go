package cli

import (
	"bytes"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"editionlinks/internal/codec"
	"editionlinks/internal/repository/sqlite"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output     string
	DataFormat string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the local database as a fixture file",
		Long: `Write every title and edition in the local sqlite database, with the
titles each edition is currently linked to. YAML output can be imported
again with the import command.

Example:
  editionlinks export -o snapshot.yaml
  editionlinks export --as json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.DataFormat, "as", "yaml", "data format (yaml|json)")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	exporter, err := codec.ForFormat(opts.DataFormat)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid export format", err)
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if _, err := newLogger(cmd, cfg); err != nil {
		return err
	}

	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer repo.Close()

	ds, err := repo.Export(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read database", err)
	}

	if opts.Output == "" {
		if err := exporter.Export(ds, cmd.OutOrStdout()); err != nil {
			return WrapExitError(ExitCommandError, "failed to write export", err)
		}
		return nil
	}

	// Render fully before touching the file so a failed export leaves the old snapshot
	var buf bytes.Buffer
	if err := exporter.Export(ds, &buf); err != nil {
		return WrapExitError(ExitCommandError, "failed to write export", err)
	}
	if err := atomic.WriteFile(opts.Output, &buf); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output file", err)
	}
	return nil
}
