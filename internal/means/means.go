package means

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/luismedel/protohackers-challenge/internal/frame"
	"github.com/luismedel/protohackers-challenge/internal/ledger"
	"github.com/luismedel/protohackers-challenge/internal/metrics"
	"github.com/luismedel/protohackers-challenge/internal/server"
)

// ErrInvalidCommand is returned for a record with an unknown command byte.
var ErrInvalidCommand = errors.New("invalid command")

// Config configures a Handler.
type Config struct {
	ReadBufferRecords int  // Frame buffer size in records
	SharedLedger      bool // Use one ledger for every connection
}

// DefaultConfig returns the default handler configuration.
func DefaultConfig() Config {
	return Config{
		ReadBufferRecords: frame.DefaultBufferRecords,
	}
}

// Handler serves price ledger connections.
type Handler struct {
	cfg    Config
	shared *ledger.Shared
}

// New creates a Handler.
func New(cfg Config) *Handler {
	if cfg.ReadBufferRecords <= 0 {
		cfg.ReadBufferRecords = frame.DefaultBufferRecords
	}
	h := &Handler{cfg: cfg}
	if cfg.SharedLedger {
		h.shared = ledger.NewShared()
	}
	return h
}

func (h *Handler) store() ledger.Store {
	if h.shared != nil {
		return h.shared
	}
	return ledger.New()
}

// Serve implements server.Handler.
func (h *Handler) Serve(ctx context.Context, s *server.Session) {
	r := frame.NewReader(s.Conn, h.cfg.ReadBufferRecords)
	err := Process(r, s.Conn, h.store(), s.Metrics)

	switch {
	case err == nil:
		s.Logger.Debug("client closed stream")
	case errors.Is(err, ErrInvalidCommand):
		s.Metrics.ProtocolViolation()
		s.Logger.Debug("closing connection", "reason", err)
	case ctx.Err() != nil || server.IsDisconnect(err):
		s.Logger.Debug("connection ended", "error", err)
	default:
		s.Metrics.TransportError()
		s.Logger.Error("transport error", "error", err)
	}
}

// Process applies every record from r to store in arrival order and writes
// query responses to w. It returns nil when the stream ends cleanly.
func Process(r *frame.Reader, w io.Writer, store ledger.Store, m *metrics.Service) error {
	var resp [4]byte
	for {
		rec, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		switch rec.Command {
		case frame.CommandInsert:
			store.Insert(rec.Arg1, rec.Arg2)
		case frame.CommandQuery:
			mean := store.Query(rec.Arg1, rec.Arg2)
			binary.BigEndian.PutUint32(resp[:], uint32(mean))
			if _, err := w.Write(resp[:]); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		default:
			return fmt.Errorf("%w %s", ErrInvalidCommand, rec.Command)
		}
		m.Record(rec.Command.String())
	}
}
