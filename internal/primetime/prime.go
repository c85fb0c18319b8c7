package primetime

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/luismedel/protohackers-challenge/internal/metrics"
	"github.com/luismedel/protohackers-challenge/internal/server"
)

const (
	// MaxLineSize bounds a single request line.
	MaxLineSize = 1 << 20

	// Rounds of Miller-Rabin on top of the Baillie-PSW test.
	primeRounds = 20

	methodIsPrime = "isPrime"
)

// ErrMalformed is returned for a request that is not a valid isPrime call.
var ErrMalformed = errors.New("malformed request")

var malformedResponse = []byte("malformed request\n")

type request struct {
	Method *string         `json:"method"`
	Number json.RawMessage `json:"number"`
}

type response struct {
	Method string `json:"method"`
	Prime  bool   `json:"prime"`
}

// ParseRequest validates one request line and returns its number.
func ParseRequest(line []byte) (decimal.Decimal, error) {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if req.Method == nil || *req.Method != methodIsPrime {
		return decimal.Decimal{}, fmt.Errorf("%w: method must be %q", ErrMalformed, methodIsPrime)
	}

	raw := bytes.TrimSpace(req.Number)
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return decimal.Decimal{}, fmt.Errorf("%w: number must be a JSON number", ErrMalformed)
	}

	n, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return n, nil
}

// Memo caches primality results by number.
type Memo struct {
	mu      sync.Mutex
	results map[string]bool
}

// NewMemo creates an empty Memo.
func NewMemo() *Memo {
	return &Memo{results: make(map[string]bool)}
}

// IsPrime reports whether n is a prime integer.
func (m *Memo) IsPrime(n decimal.Decimal) bool {
	v, ok := candidate(n)
	if !ok {
		return false
	}

	key := v.String()
	m.mu.Lock()
	prime, ok := m.results[key]
	m.mu.Unlock()
	if ok {
		return prime
	}

	prime = v.ProbablyPrime(primeRounds)

	m.mu.Lock()
	m.results[key] = prime
	m.mu.Unlock()
	return prime
}

// candidate returns n as an integer >= 2 when it could be prime. It works on
// the coefficient and exponent directly and never expands a power of ten.
func candidate(n decimal.Decimal) (*big.Int, bool) {
	coef := n.Coefficient()
	if coef.Sign() <= 0 {
		return nil, false
	}

	exp := int64(n.Exponent())
	switch {
	case exp > 0:
		// coefficient * 10^exp is a multiple of 10.
		return nil, false
	case exp < 0:
		digits := coef.Text(10)
		scale := -exp
		if scale >= int64(len(digits)) {
			// 0 < n < 1
			return nil, false
		}
		zeros := len(digits) - len(strings.TrimRight(digits, "0"))
		if int64(zeros) < scale {
			return nil, false
		}
		coef.SetString(digits[:len(digits)-int(scale)], 10)
	}

	if coef.Cmp(big.NewInt(2)) < 0 {
		return nil, false
	}
	return coef, true
}

// Len returns the number of cached results.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}

// Handler serves prime checking connections.
type Handler struct {
	memo *Memo
}

// New creates a Handler with its own Memo.
func New() *Handler {
	return &Handler{memo: NewMemo()}
}

// Serve implements server.Handler.
func (h *Handler) Serve(ctx context.Context, s *server.Session) {
	err := Process(s.Conn, s.Conn, h.memo, s.Metrics)
	switch {
	case err == nil:
		s.Logger.Debug("client closed stream")
	case errors.Is(err, ErrMalformed):
		s.Metrics.ProtocolViolation()
		s.Logger.Debug("closing connection", "reason", err)
	case ctx.Err() != nil || server.IsDisconnect(err):
		s.Logger.Debug("connection ended", "error", err)
	default:
		s.Metrics.TransportError()
		s.Logger.Error("transport error", "error", err)
	}
}

// Process answers each request line from r on w. It stops at the end of the
// stream, at an empty line, or after answering a malformed request, which is
// reported as ErrMalformed.
func Process(r io.Reader, w io.Writer, memo *Memo, m *metrics.Service) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), MaxLineSize)
	enc := json.NewEncoder(w)

	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			return nil
		}

		n, err := ParseRequest(line)
		if err != nil {
			if _, werr := w.Write(malformedResponse); werr != nil {
				return fmt.Errorf("write: %w", werr)
			}
			return err
		}

		if err := enc.Encode(response{Method: methodIsPrime, Prime: memo.IsPrime(n)}); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		m.Record(methodIsPrime)
	}

	err := sc.Err()
	if errors.Is(err, bufio.ErrTooLong) {
		if _, werr := w.Write(malformedResponse); werr != nil {
			return fmt.Errorf("write: %w", werr)
		}
		return fmt.Errorf("%w: line exceeds %d bytes", ErrMalformed, MaxLineSize)
	}
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return nil
}
