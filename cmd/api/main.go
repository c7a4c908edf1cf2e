package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"fleetplan/internal/api"
	"fleetplan/internal/buildinfo"
	"fleetplan/internal/config"
)

var interruptSignals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
	syscall.SIGINT,
}

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(), interruptSignals...)
	defer stop()

	server, err := api.NewServer(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot create server")
	}
	defer func() {
		if err := server.Close(); err != nil {
			log.Error().Err(err).Msg("close server resources")
		}
	}()

	waitGroup, ctx := errgroup.WithContext(ctx)
	runHTTPServer(ctx, waitGroup, cfg, server)

	if err := waitGroup.Wait(); err != nil {
		log.Error().Err(err).Msg("error from wait group")
	}
}

func runHTTPServer(ctx context.Context, waitGroup *errgroup.Group, cfg config.Config, server *api.Server) {
	// No WriteTimeout: run event streams stay open indefinitely. Request
	// contexts derive from ctx so streams end and running solves return their
	// best plan once shutdown starts.
	httpServer := &http.Server{
		Addr:              cfg.HTTPServerAddress,
		Handler:           server.Routes(),
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	waitGroup.Go(func() error {
		log.Info().
			Str("version", buildinfo.Info().Version).
			Msgf("start HTTP server at %s", cfg.HTTPServerAddress)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed to serve")
			return err
		}
		return nil
	})

	waitGroup.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("graceful shutdown HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown HTTP server")
			return err
		}
		log.Info().Msg("HTTP server is stopped")
		return nil
	})
}
