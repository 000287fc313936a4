package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"fee-elasticity-lab/internal/observability"
	"fee-elasticity-lab/internal/pipeline"
)

// serveCmd exposes Prometheus metrics, optionally after a full run
var serveCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Serve Prometheus metrics on /metrics",
	Long: `Serve /metrics and /health until interrupted. With --run, a full
study is executed first so its calibration and simulation metrics are
exposed.`,
	RunE: runServe,
}

var (
	serveAddr string
	serveRun  bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":9090", "Listen address")
	serveCmd.Flags().BoolVar(&serveRun, "run", false, "Execute a full run before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if serveRun {
		c, in, err := loadRun()
		if err != nil {
			return err
		}
		stores, cleanup, err := createStores(ctx, c)
		if err != nil {
			return err
		}
		_, err = pipeline.New(stores, c, &logger).Run(ctx, in)
		cleanup()
		if err != nil {
			return err
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: serveAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", serveAddr).Msg("metrics server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info().Msg("shutting down metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
