package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"editionlinks/internal/config"
	"editionlinks/internal/index"
	"editionlinks/internal/index/solr"
	"editionlinks/internal/logging"
	"editionlinks/internal/repository"
	"editionlinks/internal/repository/fedora"
	"editionlinks/internal/repository/sqlite"
)

// app holds the configured collaborators of a command
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	repo     repository.Repository
	searcher index.Searcher
	local    *sqlite.Repository
}

// loadConfig reads the config file named by --config, or searches the
// default locations
func loadConfig(opts *RootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, _, err = config.LoadFromPath(opts.ConfigPath)
	} else {
		cfg, _, err = config.Load()
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger configures the process logger on the command's stderr
func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.Setup(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to configure logging", err)
	}
	return logger, nil
}

// openApp loads config and opens the repository and index backends
func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	logger.Debug("configuration loaded", "summary", cfg.Summary())

	if cfg.UsesSQLite() {
		local, err := sqlite.New(cfg.Database.Path, sqlite.WithPublishGuard(cfg.Repository.GuardPublished()))
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		a.local = local
		logger.Debug("database opened", "path", cfg.Database.Path)
	}

	switch cfg.Repository.Backend {
	case config.BackendFedora:
		a.repo = fedora.New(fedora.Config{
			BaseURL:    cfg.Repository.URL,
			Username:   cfg.Repository.Username,
			Password:   cfg.Repository.Password,
			Retries:    cfg.RetryCount(),
			RetryDelay: cfg.Repository.RetryDelay.Duration(),
			Timeout:    cfg.Repository.Timeout.Duration(),
		}, logger)
	default:
		a.repo = a.local
	}

	switch cfg.Index.Backend {
	case config.BackendSolr:
		a.searcher = solr.New(cfg.Index.URL, cfg.Index.Timeout.Duration())
	default:
		a.searcher = a.local
	}

	logger.Debug("backends ready", "repository", cfg.Repository.Backend, "index", cfg.Index.Backend)
	return a, nil
}

// Close releases the local database, if one was opened
func (a *app) Close() error {
	if a.local != nil {
		return a.local.Close()
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// startServer serves handler on addr until the returned stop function is
// called
func startServer(addr string, handler http.Handler, logger *slog.Logger) func() {
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // event streams stay open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "addr", addr, "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("http server shutdown error", "error", err)
		}
	}
}
