package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erazemk/lotbook/internal/api"
	"github.com/erazemk/lotbook/internal/jobs"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the archive purge schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(g)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return serve(a)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides config)")
	return cmd
}

func serve(a *app) error {
	sc := a.cfg.Server

	scheduler, err := jobs.NewScheduler(a.media, a.cfg.Media.PurgeSchedule, a.cfg.Media.ArchiveRetention, a.log)
	if err != nil {
		return err
	}
	scheduler.Start()

	router := api.NewRouter(api.Deps{
		DB:             a.db,
		Records:        a.records,
		Importer:       a.importer,
		Media:          a.media,
		MaxUploadBytes: sc.MaxUploadBytes,
	})

	server := &http.Server{
		Addr:              sc.Addr,
		Handler:           api.LoggingMiddleware(a.log)(router),
		ReadHeaderTimeout: sc.ReadHeaderTimeout,
		ReadTimeout:       sc.ReadTimeout,
		WriteTimeout:      sc.WriteTimeout,
		IdleTimeout:       sc.IdleTimeout,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	failed := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case sig := <-quit:
			a.log.Info("shutdown signal received", zap.String("signal", sig.String()))
		case <-failed:
		}

		ctx, cancel := context.WithTimeout(context.Background(), sc.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			a.log.Error("server forced to shutdown", zap.Error(err))
		}
		scheduler.Stop(ctx)
	}()

	a.log.Info("server started", zap.String("addr", sc.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		close(failed)
		<-stopped
		return err
	}
	<-stopped

	a.log.Info("server stopped, closing database")
	return nil
}
