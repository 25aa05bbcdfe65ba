package workers

import (
	"chat-relay/contract"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

var _ contract.Worker = (*RelayListenerWorker)(nil)

// Relay is the websocket side the listener serves.
type Relay interface {
	http.Handler
	CloseAll()
}

// RelayListenerWorker serves the relay until its context is canceled, then
// stops accepting connections and closes the open channels.
type RelayListenerWorker struct {
	log             *slog.Logger
	relay           Relay
	address         string
	shutdownTimeout time.Duration
	ready           chan net.Addr
}

func NewRelayListenerWorker(log *slog.Logger, relay Relay, address string, shutdownTimeout time.Duration) *RelayListenerWorker {
	return &RelayListenerWorker{
		log:             log,
		relay:           relay,
		address:         address,
		shutdownTimeout: shutdownTimeout,
		ready:           make(chan net.Addr, 1),
	}
}

// Ready yields the bound address once the listener accepts connections.
func (w *RelayListenerWorker) Ready() <-chan net.Addr { return w.ready }

func (w *RelayListenerWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.address, err)
	}
	server := &http.Server{Handler: w.relay, ReadHeaderTimeout: 10 * time.Second}

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Relay listening", "address", listener.Addr().String())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()
	select {
	case w.ready <- listener.Addr():
	default:
	}

	select {
	case err := <-errChan:
		return fmt.Errorf("relay server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	w.relay.CloseAll()
	if err != nil {
		w.log.Warn("Relay shutdown incomplete", "error", err)
	}
	w.log.Info("Relay stopped")
	return nil
}
