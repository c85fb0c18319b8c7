package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/luismedel/protohackers-challenge/internal/metrics"
	"github.com/luismedel/protohackers-challenge/internal/pool"
)

// Accept retry delays for transient errors.
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Service) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// Server accepts connections for one service.
type Server struct {
	cfg     Config
	handler Handler
	pool    *pool.Pool
	logger  *slog.Logger
	metrics *metrics.Service

	state atomic.Int32

	mu   sync.Mutex
	addr net.Addr
}

// New creates a Server running handler on connections admitted by p.
func New(cfg Config, handler Handler, p *pool.Pool, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		handler: handler,
		pool:    p,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("service", cfg.Name)
	return s
}

// Name returns the service name.
func (s *Server) Name() string {
	return s.cfg.Name
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// Addr returns the bound listener address, or nil before Run binds it.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run binds the configured address and serves until ctx is cancelled or the
// pool refuses a connection. A call made while another Run or Serve is active
// returns nil immediately.
func (s *Server) Run(ctx context.Context) error {
	if !s.begin() {
		s.logger.Debug("server already running")
		return nil
	}

	s.logger.Info("binding server", "addr", s.cfg.Addr)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		s.state.Store(int32(StateStopped))
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}

	s.serve(ctx, ln)
	return nil
}

// Serve is like Run but uses an already bound listener. Serve takes
// ownership of ln and closes it on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if !s.begin() {
		s.logger.Debug("server already running")
		ln.Close()
		return nil
	}
	s.serve(ctx, ln)
	return nil
}

// begin moves the server to Running unless it is already active.
func (s *Server) begin() bool {
	for {
		cur := State(s.state.Load())
		if cur == StateRunning || cur == StateDraining {
			return false
		}
		if s.state.CompareAndSwap(int32(cur), int32(StateRunning)) {
			return true
		}
	}
}

func (s *Server) serve(ctx context.Context, ln net.Listener) {
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		ln.Close()
	})
	defer stop()

	s.logger.Info("listening for connections", "addr", ln.Addr().String())

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}

			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay = min(delay*2, maxAcceptDelay)
			}
			s.logger.Error("accept failed", "error", err, "retry_in", delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
			continue
		}
		delay = 0

		if !s.dispatch(ctx, conn) {
			s.logger.Error("stopping server", "reason", "can't allocate new tasks")
			break
		}
	}

	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Debug("close listener", "error", err)
	}

	s.state.Store(int32(StateDraining))
	s.drain()
	s.state.Store(int32(StateStopped))

	s.logger.Info("server stopped")
}

// dispatch submits conn to the pool and reports whether it was admitted.
func (s *Server) dispatch(ctx context.Context, conn net.Conn) bool {
	sess := &Session{
		ID:      uuid.New(),
		Conn:    conn,
		Metrics: s.metrics,
	}
	sess.Logger = s.logger.With(
		"remote", conn.RemoteAddr().String(),
		"session", sess.ID.String(),
	)
	sess.Logger.Info("accepted connection")
	s.metrics.ConnectionAccepted()

	if s.pool.Submit(func() { s.handle(ctx, sess) }) {
		return true
	}

	s.metrics.ConnectionRejected()
	if err := conn.Close(); err != nil {
		sess.Logger.Debug("close rejected connection", "error", err)
	}
	return false
}

// handle runs the service handler on one admitted connection.
func (s *Server) handle(ctx context.Context, sess *Session) {
	s.metrics.ConnectionOpened()
	defer s.metrics.ConnectionClosed()

	// Unblock pending reads and writes on shutdown.
	stop := context.AfterFunc(ctx, func() {
		sess.Conn.SetDeadline(time.Now())
	})
	defer stop()

	defer func() {
		if err := sess.Conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			sess.Logger.Debug("close connection", "error", err)
		}
		sess.Logger.Debug("connection closed")
	}()

	s.handler.Serve(ctx, sess)
}

func (s *Server) drain() {
	ctx := context.Background()
	if s.cfg.DrainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DrainTimeout)
		defer cancel()
	}

	if err := s.pool.Drain(ctx); err != nil {
		s.logger.Warn("drain incomplete", "error", err, "pending", s.pool.Len())
	}
}
