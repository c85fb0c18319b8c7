package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/luismedel/protohackers-challenge/internal/metrics"
)

// State is the lifecycle state of a Server.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config configures a Server.
type Config struct {
	Name         string        // Service name, used in logs and metrics
	Addr         string        // host:port to listen on
	DrainTimeout time.Duration // Max wait for handlers on shutdown (0 = no limit)
}

// Session is one accepted connection.
type Session struct {
	ID      uuid.UUID
	Conn    net.Conn
	Logger  *slog.Logger
	Metrics *metrics.Service
}

// Handler serves one connection. The server closes the connection after
// Serve returns; Serve may close it earlier.
type Handler interface {
	Serve(ctx context.Context, s *Session)
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, s *Session)

func (f HandlerFunc) Serve(ctx context.Context, s *Session) {
	f(ctx, s)
}

// IsDisconnect reports whether err is a normal end of a connection: the peer
// closed it, it was closed locally, or a shutdown deadline fired.
func IsDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrDeadlineExceeded)
}
