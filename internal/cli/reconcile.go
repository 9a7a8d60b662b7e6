package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"editionlinks/internal/domain"
	"editionlinks/internal/index"
	"editionlinks/internal/metrics"
	"editionlinks/internal/service"
)

// ReconcileOptions holds flags for the reconcile command.
type ReconcileOptions struct {
	*RootOptions
	Workers     int
	Events      bool
	MetricsAddr string
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconcileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconcile [pid...]",
		Short: "Reconcile the title relations of editions",
		Long: `Reconcile the title relations of the given editions. Edition pids are
taken from the arguments, or read from stdin one per line when no
arguments are given. Bare pids and info:fedora/ URIs are accepted.

Exits with status 1 if any edition failed.

Example:
  editionlinks reconcile uuid:0c1969ca-94be-4ebb-abab-0bd8130e59d7
  editionlinks reconcile --workers 8 --events < editions.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(opts, args, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "concurrent editions (default from config)")
	cmd.Flags().BoolVar(&opts.Events, "events", false, "stream events to stderr as JSON lines")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	return cmd
}

func runReconcile(opts *ReconcileOptions, args []string, cmd *cobra.Command) error {
	editions, err := readEditions(args, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read edition pids", err)
	}
	if len(editions) == 0 {
		return NewExitError(ExitCommandError, "no editions given")
	}

	a, err := openApp(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	metricsAddr := opts.MetricsAddr
	if metricsAddr == "" {
		metricsAddr = a.cfg.Metrics.Addr
	}
	if metricsAddr != "" {
		metrics.RegisterMetrics()
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", metrics.Handler())
		stop := startServer(metricsAddr, mux, a.logger)
		defer stop()
	}

	var eventBus *service.EventBus
	if opts.Events {
		eventBus = service.NewEventBus()
		events := make(chan service.Event, 256)
		eventBus.Subscribe(events)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			streamEvents(cmd.ErrOrStderr(), events)
		}()
		defer func() {
			close(events)
			wg.Wait()
		}()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = a.cfg.Workers
	}

	svc := service.NewReconcileService(a.repo, index.NewTitleIndex(a.searcher), eventBus, a.logger)
	runner := service.NewBatchRunner(svc, workers, eventBus, a.logger)
	batch := runner.Run(ctx, editions)

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	text := func(w io.Writer) { printBatch(w, batch) }

	if batch.ContainsFailures() {
		msg := fmt.Sprintf("%d of %d editions failed", batch.Failures(), len(batch.Items))
		if err := out.Failure(msg, batch, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return out.Success(batch, text)
}

// readEditions returns the edition items named in args, or in r when args
// is empty. Blank lines and lines starting with # are skipped.
func readEditions(args []string, r io.Reader) ([]domain.Item, error) {
	var pids []string
	if len(args) > 0 {
		pids = args
	} else {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			pids = append(pids, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	editions := make([]domain.Item, 0, len(pids))
	for _, pid := range pids {
		pid = strings.TrimSpace(pid)
		if pid == "" || strings.HasPrefix(pid, "#") {
			continue
		}
		editions = append(editions, domain.ItemFromURI(pid))
	}
	return editions, nil
}

func streamEvents(w io.Writer, events <-chan service.Event) {
	enc := json.NewEncoder(w)
	for event := range events {
		_ = enc.Encode(event)
	}
}

func printBatch(w io.Writer, batch *service.BatchResult) {
	for _, item := range batch.Items {
		if item.Success {
			fmt.Fprintf(w, "OK      %s +%d -%d\n", item.Edition, len(item.Added), len(item.Removed))
			continue
		}
		fmt.Fprintf(w, "FAILED  %s %s\n", item.Edition, item.Error)
	}
	fmt.Fprintf(w, "%d editions, %d failed (run %s)\n", len(batch.Items), batch.Failures(), batch.RunID)
}
