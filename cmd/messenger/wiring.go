package main

import (
	"chat-relay/api"
	"chat-relay/app"
	"chat-relay/client"
	"chat-relay/contract"
	"chat-relay/dispatcher"
	"chat-relay/presentation"
	"chat-relay/runtime/workers"
	"chat-relay/storage"
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
)

const loopBufferSize = 256

// environment is one running messenger: state store, presentation loop,
// dispatcher and connections, all stopped by Close.
type environment struct {
	log         *slog.Logger
	messenger   *app.Messenger
	connections *client.Connections
	supervisor  *workers.Supervisor
	cancel      context.CancelFunc
	closeStore  func() error
}

func newEnvironment(ctx context.Context, config Config, onChange func(presentation.Change)) (*environment, error) {
	logger := logs.GetLoggerFromString(config.LogLevel)

	store, closeStore, err := openStore(config, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	loop := presentation.NewLoop(loopBufferSize)
	view := presentation.NewChatView(logger, onChange)
	events := dispatcher.New(logger, loop, view)

	sup := workers.NewSupervisor(logger, 0)
	sup.Add(loop, events)
	go sup.Run(ctx)

	clientConfig := client.DefaultConfig(config.WSBase)
	clientConfig.PingInterval = config.PingInterval
	clientConfig.PongTimeout = config.PongTimeout
	clientConfig.MaxRetries = config.MaxRetries
	connections := client.NewConnections(ctx, logger, events, clientConfig)

	messenger := app.New(logger, store, api.New(logger, config.APIBase, config.HTTPTimeout), connections, loop, view)
	return &environment{
		log:         logger,
		messenger:   messenger,
		connections: connections,
		supervisor:  sup,
		cancel:      cancel,
		closeStore:  closeStore,
	}, nil
}

func (e *environment) Close() {
	e.connections.CloseAll()
	e.cancel()
	e.supervisor.Wait()
	if err := e.closeStore(); err != nil {
		e.log.Warn("State store not closed cleanly", "error", err)
	}
}

func openStore(config Config, log *slog.Logger) (contract.IStateStore, func() error, error) {
	switch config.StateBackend {
	case backendFile:
		return storage.NewFileStore(config.StatePath, log), func() error { return nil }, nil
	case backendBadger:
		options := badger.DefaultOptions(config.StatePath).WithLoggingLevel(badger.WARNING)
		db, err := badger.Open(options)
		if err != nil {
			return nil, nil, fmt.Errorf("state database opening failed: %w", err)
		}
		return storage.NewBadgerStore(db, log), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", config.StateBackend)
	}
}
