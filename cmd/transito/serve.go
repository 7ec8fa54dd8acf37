package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/transito/internal/cli"
	httpadapter "github.com/aretw0/transito/pkg/adapters/http"
	"github.com/aretw0/transito/pkg/observability"
	"github.com/aretw0/transito/pkg/persistence/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the machine over HTTP",
	Long:  `Binds the definition to the backend and exposes actors as a JSON API, with Prometheus metrics on /metrics.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := observability.NewMetrics(reg)
		hooks := observability.Aggregate(metrics.Hooks(), observability.Logging(logger))

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		rt, err := cli.NewRuntime(sc, cfg, logger, hooks,
			middleware.NewInstrumentation(middleware.NewAdapterMetrics(reg), logger))
		if err != nil {
			return err
		}
		defer rt.Close()

		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           httpadapter.NewHandler(rt.Machine, httpadapter.WithLogger(logger), httpadapter.WithMetrics(reg)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Fprintf(cmd.ErrOrStderr(), "Starting transito server on %s (backend %s)\n", srv.Addr, cfg.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-sc.Done():
			fmt.Fprintf(cmd.ErrOrStderr(), "\nStart shutdown... Signal: %v\n", sc.Signal())

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				return srv.Close()
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Transito server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
}
