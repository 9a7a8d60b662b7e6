package cli

import (
	"net/http"

	"github.com/spf13/cobra"

	"editionlinks/internal/handler"
	"editionlinks/internal/hub"
	"editionlinks/internal/index"
	"editionlinks/internal/metrics"
	"editionlinks/internal/service"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reconcile API over HTTP",
		Long: `Serve an HTTP API that reconciles editions on request, together with
an event stream (/events) and Prometheus metrics (/metrics).

Example:
  editionlinks serve --addr :8080
  curl -X POST localhost:8080/api/editions/uuid:0c1969ca-94be-4ebb-abab-0bd8130e59d7/reconcile`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "HTTP listen address")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	a, err := openApp(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	eventBus := service.NewEventBus()

	sseHub := hub.New(a.logger)
	go sseHub.Run(ctx)

	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	go func() {
		for {
			select {
			case event := <-eventChan:
				sseHub.Broadcast(string(event.Type), event)
			case <-ctx.Done():
				return
			}
		}
	}()

	titles := index.NewTitleIndex(a.searcher)
	svc := service.NewReconcileService(a.repo, titles, eventBus, a.logger)
	editionHandler := handler.NewEditionHandler(svc, titles, a.logger)

	metrics.RegisterMetrics()

	mux := http.NewServeMux()
	editionHandler.Register(mux)
	mux.Handle("GET /events", sseHub)
	mux.Handle("GET /metrics", metrics.Handler())

	stop := startServer(opts.Addr, handler.Chain(mux,
		handler.Recover(a.logger),
		handler.Logger(a.logger),
	), a.logger)

	<-ctx.Done()
	a.logger.Info("shutting down server")
	stop()
	return nil
}
