// Package cli implements the editionlinks command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"editionlinks/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the editionlinks CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "editionlinks",
		Short: "Maintain edition to newspaper title relations",
		Long: `editionlinks keeps the "is part of newspaper" relations of newspaper
editions in the document repository equal to the titles the search index
says each edition belongs to.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			// Logs and streamed events share stderr from several goroutines
			cmd.SetErr(logging.NewSyncWriter(cmd.ErrOrStderr()))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default: search $EDITIONLINKS_CONFIG, ./editionlinks.yaml, XDG, /etc)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}
