package smoketest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/luismedel/protohackers-challenge/internal/server"
)

// BufferSize is the read chunk size.
const BufferSize = 1024

// Handler echoes connections.
type Handler struct{}

// New creates an echo Handler.
func New() *Handler {
	return &Handler{}
}

// Serve implements server.Handler.
func (h *Handler) Serve(ctx context.Context, s *server.Session) {
	n, err := Echo(s.Conn, s.Conn)
	switch {
	case err == nil:
		s.Logger.Debug("client closed stream", "bytes", n)
	case ctx.Err() != nil || server.IsDisconnect(err):
		s.Logger.Debug("connection ended", "bytes", n, "error", err)
	default:
		s.Metrics.TransportError()
		s.Logger.Error("transport error", "bytes", n, "error", err)
	}
}

// Echo writes everything read from r to w chunk by chunk until EOF and returns the
// number of bytes echoed.
func Echo(r io.Reader, w io.Writer) (int64, error) {
	buf := make([]byte, BufferSize)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return total, fmt.Errorf("write: %w", werr)
			}
			total += int64(n)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}
			return total, fmt.Errorf("read: %w", err)
		}
	}
}
