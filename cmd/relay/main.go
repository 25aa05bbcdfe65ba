package main

import (
	"chat-relay/relay"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"golang.org/x/sync/errgroup"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the relay and blocks until a stop signal. Every worker runs
// under the supervisor, so a crashed listener is restarted instead of
// taking the process down.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	config, err := loadConfig()
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Relay
	registry := relay.NewRegistry()
	server := relay.NewServer(logger, registry, config.Relay())

	listener := workers.NewRelayListenerWorker(logger, server, config.Address(), config.ShutdownTimeout)
	health := workers.NewHealthWorker(logger, config.HealthAddress())
	stats := workers.NewStatsWorker(logger, registry, config.StatsInterval)

	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(listener, health, stats)

	// 4. Run until stopped
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sup.Run(gctx)
		return nil
	})
	g.Go(func() error {
		select {
		case addr := <-listener.Ready():
			logger.Info("Relay ready", "address", addr.String(), "lite", config.EnableLite)
		case <-gctx.Done():
		}
		select {
		case addr := <-health.Ready():
			logger.Info("Health service ready", "address", addr.String())
		case <-gctx.Done():
		}
		return nil
	})

	<-ctx.Done()
	logger.Info("Shutdown signal received")
	if err := g.Wait(); err != nil {
		return exitRuntime, err
	}
	logger.Info("Relay stopped cleanly")
	return exitOK, nil
}
