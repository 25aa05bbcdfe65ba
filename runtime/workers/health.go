package workers

import (
	"chat-relay/contract"
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

var _ contract.Worker = (*HealthWorker)(nil)

// HealthWorker exposes the standard gRPC health service for the relay.
// It reports SERVING while running and NOT_SERVING once shutdown begins.
type HealthWorker struct {
	log     *slog.Logger
	address string
	ready   chan net.Addr
}

func NewHealthWorker(log *slog.Logger, address string) *HealthWorker {
	return &HealthWorker{log: log, address: address, ready: make(chan net.Addr, 1)}
}

func (w *HealthWorker) Ready() <-chan net.Addr { return w.ready }

func (w *HealthWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.address, err)
	}

	server := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Health service listening", "address", listener.Addr().String())
		if err := server.Serve(listener); err != nil && err != grpc.ErrServerStopped {
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
		return fmt.Errorf("gRPC health server error: %w", err)
	case <-ctx.Done():
	}

	healthServer.Shutdown()
	server.GracefulStop()
	return nil
}
