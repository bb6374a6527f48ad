package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"codeberg.org/mutker/usagemon/internal/api"
	"codeberg.org/mutker/usagemon/internal/config"
	"codeberg.org/mutker/usagemon/internal/errors"
	"codeberg.org/mutker/usagemon/internal/logger"
	"codeberg.org/mutker/usagemon/internal/monitor"
	"codeberg.org/mutker/usagemon/internal/pid"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	level, _ := logger.ParseLevel(cfg.LogLevel.String())
	logger.Init(level, logger.IsService())
	logger.Debug().Msg("Config loaded")

	pidFile := pid.Path(cfg.PIDFile)
	if err := pid.Write(pidFile); err != nil {
		logger.Error().Str("code", string(errors.CodeOf(err))).Err(err).Msg("Failed to write PID file")
		return 1
	}
	defer func() {
		if err := pid.Remove(pidFile); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	store, err := openStore(cfg.Store)
	if err != nil {
		logger.Error().Str("code", string(errors.CodeOf(err))).Err(err).Msg("Failed to open metrics store")
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close metrics store")
		}
	}()

	monitors, shutdown, err := buildMonitors(ctx, cfg, store)
	if err != nil {
		logger.Error().Str("code", string(errors.CodeOf(err))).Err(err).Msg("Failed to initialize monitors")
		return 1
	}
	defer shutdown()

	collector, err := monitor.NewCollector(cfg.Interval, monitors...)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize collector")
		return 1
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := collector.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("Error in collection loop")
		}
	}()

	startStoreMaintenance(ctx, &wg, store)

	if cfg.HTTP.Listen != "" {
		server := api.NewServer(cfg.HTTP.Listen, monitor.NewService(monitors...))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Run(ctx); err != nil {
				logger.Error().Str("code", string(errors.CodeOf(err))).Err(err).Msg("HTTP server failed")
				cancel()
			}
		}()
	}

	<-ctx.Done()
	wg.Wait()
	logger.Info().Msg("Exiting...")

	return 0
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
