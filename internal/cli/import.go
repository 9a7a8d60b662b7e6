package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"editionlinks/internal/loader"
	"editionlinks/internal/repository/sqlite"
	"editionlinks/internal/watcher"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Replace bool
	Watch   bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <fixtures.yaml>",
		Short: "Load editions and titles into the local database",
		Long: `Load a fixture file of titles and editions into the local sqlite
database used by the sqlite repository and index backends.

Example:
  editionlinks import fixtures.yaml
  editionlinks import --replace --watch fixtures.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "clear the database before importing")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "re-import whenever the file changes")

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	repo, err := sqlite.New(cfg.Database.Path, sqlite.WithPublishGuard(cfg.Repository.GuardPublished()))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer repo.Close()

	strategy := sqlite.ImportMerge
	if opts.Replace {
		strategy = sqlite.ImportReplace
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	importOnce := func(ctx context.Context) error {
		ds, err := loader.LoadYAML(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load fixtures", err)
		}
		result, err := repo.Import(ctx, ds, strategy)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to import fixtures", err)
		}
		logger.Info("fixtures imported", "path", path, "titles", result.Titles, "editions", result.Editions, "relations", result.Relations)
		return out.Success(result, func(w io.Writer) {
			fmt.Fprintf(w, "Imported %d titles, %d editions, %d relations into %s\n",
				result.Titles, result.Editions, result.Relations, cfg.Database.Path)
		})
	}

	if err := importOnce(ctx); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}

	w := watcher.New(path, func() {
		if err := importOnce(ctx); err != nil {
			logger.Error("re-import failed", "path", path, "error", err)
		}
	}, logger)

	if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitCommandError, "failed to watch fixtures", err)
	}
	return nil
}
