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
	"github.com/spf13/pflag"

	router "github.com/dkeye/CollabRelay/internal/adapters/http"
	wssignal "github.com/dkeye/CollabRelay/internal/adapters/signal"
	"github.com/dkeye/CollabRelay/internal/app"
	"github.com/dkeye/CollabRelay/internal/app/orch"
	"github.com/dkeye/CollabRelay/internal/config"
	"github.com/dkeye/CollabRelay/internal/db"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Error().Err(err).Msg("relay exited with error")
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}

	var journal app.Journal = app.NopJournal{}
	var stats router.StatsSource
	if cfg.JournalPath != "" {
		database, err := db.New(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer database.Close()
		recorder := db.NewRecorder(database, 1024)
		defer recorder.Close()
		journal = recorder
		stats = recorder
	}

	policy, err := app.PolicyByName(cfg.BackpressurePolicy)
	if err != nil {
		return err
	}

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(),
		Policy:   policy,
		Journal:  journal,
	}

	ctl := wssignal.NewSignalWSController(o, wssignal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		SendBuffer: cfg.SendBuffer,
		RateLimit:  cfg.RateLimit,
		RateBurst:  cfg.RateBurst,
	})

	sweeper := app.NewSweeper(o, app.SweeperConfig{
		Interval:    cfg.SweepInterval,
		IdleTimeout: cfg.IdleTimeout,
	})
	sweeper.Start()
	defer sweeper.Stop()

	r := router.SetupRouter(cfg, o, ctl, stats)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("collab relay started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	o.Shutdown()
	if err := ctl.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("connections still open at shutdown deadline")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
