package health

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/luismedel/protohackers-challenge/internal/server"
)

// DefaultPollInterval is how often service states are copied to the gRPC
// health server.
const DefaultPollInterval = time.Second

// GRPCServer serves grpc.health.v1.Health from a Checker.
type GRPCServer struct {
	checker  *Checker
	interval time.Duration
	logger   *slog.Logger
	srv      *grpc.Server
	health   *health.Server
}

// NewGRPCServer creates a gRPC health server for checker. A nil logger uses
// slog.Default().
func NewGRPCServer(checker *Checker, interval time.Duration, logger *slog.Logger) *GRPCServer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	g := &GRPCServer{
		checker:  checker,
		interval: interval,
		logger:   logger,
		srv:      grpc.NewServer(),
		health:   health.NewServer(),
	}
	grpc_health_v1.RegisterHealthServer(g.srv, g.health)
	g.Update()
	return g
}

// Update copies the current service states to the health server.
func (g *GRPCServer) Update() {
	overall := grpc_health_v1.HealthCheckResponse_SERVING
	for _, s := range g.checker.services {
		status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
		if s.State() == server.StateRunning {
			status = grpc_health_v1.HealthCheckResponse_SERVING
		} else {
			overall = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		g.health.SetServingStatus(s.Name(), status)
	}
	g.health.SetServingStatus("", overall)
}

// Serve serves on ln until ctx is cancelled, refreshing statuses
// periodically.
func (g *GRPCServer) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- g.srv.Serve(ln)
	}()

	g.logger.Info("starting grpc health server", "addr", ln.Addr().String())

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.Update()
		case err := <-errCh:
			if errors.Is(err, grpc.ErrServerStopped) {
				return nil
			}
			return err
		case <-ctx.Done():
			g.health.Shutdown()
			g.srv.GracefulStop()
			<-errCh
			return nil
		}
	}
}
