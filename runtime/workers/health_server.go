package workers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"time"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the service reported by the admin health endpoint.
const ServiceName = "fanous.live.Realtime"

// HealthServerWorker exposes the standard gRPC health service on the admin
// port so orchestrators can probe the process.
type HealthServerWorker struct {
	log     *slog.Logger
	address string
	health  *health.Server
}

func NewHealthServerWorker(log *slog.Logger, address string) *HealthServerWorker {
	return &HealthServerWorker{
		log:     log,
		address: address,
		health:  health.NewServer(),
	}
}

func (w *HealthServerWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.address)
	if err != nil {
		return err
	}
	return w.serve(ctx, listener)
}

func (w *HealthServerWorker) serve(ctx context.Context, listener net.Listener) error {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(w.log)))
	grpc_health_v1.RegisterHealthServer(s, w.health)
	w.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	w.health.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting gRPC health server", "address", listener.Addr().String(), "at", time.Now().UTC())
		errChan <- s.Serve(listener)
	}()

	select {
	case err := <-errChan:
		if err != nil && !stderrors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	w.health.Shutdown()
	s.GracefulStop()
	w.log.Info("gRPC health server stopped")
	return nil
}
