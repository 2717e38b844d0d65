package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/merits"
	httpadapter "github.com/aretw0/merits/pkg/adapters/http"
	"github.com/aretw0/merits/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Serves the conversions of every loaded family as a JSON API over HTTP.
The API is described at /openapi.yaml; Prometheus metrics are at /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Addr = addr
			}
			seq, err := openStore(a.cfg.Store)
			if err != nil {
				return err
			}
			defer seq.close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			handler, err := httpadapter.NewHandler(httpadapter.Config{
				Families: a.families,
				Options: []merits.Option{
					merits.WithLineSeparator(a.cfg.LineSeparator),
					merits.WithLockTTL(a.cfg.Store.LockTTL),
					merits.WithSequenceStore(seq.store),
					merits.WithLocker(seq.locker),
					merits.WithMetrics(observability.NewMetrics(reg)),
				},
				Gatherer: reg,
				Logger:   a.logger,
			})
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              a.cfg.Addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}
			serverErrors := make(chan error, 1)
			go func() {
				a.logger.Info("starting merits server", "address", srv.Addr, "families", a.families.Names(), "store", a.cfg.Store.Kind)
				serverErrors <- srv.ListenAndServe()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-serverErrors:
				return err
			case <-ctx.Done():
				a.logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
					return srv.Close()
				}
				if err := <-serverErrors; !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				a.logger.Info("merits server stopped gracefully")
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Address to listen on (default from config)")
	return cmd
}
