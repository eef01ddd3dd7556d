package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/VideoChat/internal/adapters/hostws"
	router "github.com/dkeye/VideoChat/internal/adapters/http"
	"github.com/dkeye/VideoChat/internal/adapters/rtc"
	"github.com/dkeye/VideoChat/internal/app"
	"github.com/dkeye/VideoChat/internal/app/credentials"
	"github.com/dkeye/VideoChat/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	transport, err := rtc.NewTransport(ctx, cfg.SignalURL, rtc.DefaultWebRTCConfig(cfg.ICEServers))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init transport")
	}
	transport.ReadLimit = cfg.ReadLimit

	reg := app.NewRegistry()
	hubs := hostws.NewHubs(hostws.Options{ReadLimit: cfg.ReadLimit, PingPeriod: cfg.PingPeriod})

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Registry:  reg,
		Hubs:      hubs,
		Store:     credentials.New(cfg.Credentials),
		Transport: transport,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("VideoChat server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		reg.CloseAll()
		hubs.CloseAll()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}
