package ledger

import "sync"

// Store is a timestamp-ordered price store.
type Store interface {
	// Insert stores price at timestamp, replacing any earlier price.
	Insert(timestamp, price int32)

	// Query returns the truncated mean of all prices whose timestamp lies in
	// [mintime, maxtime], or 0 if the range is empty or inverted.
	Query(mintime, maxtime int32) int32
}

// Ledger is a single-owner price store.
type Ledger struct {
	tree *rbtree
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{tree: newRBTree()}
}

// Insert stores price at timestamp, replacing any earlier price.
func (l *Ledger) Insert(timestamp, price int32) {
	l.tree.upsert(timestamp, price)
}

// Query returns the mean price over the inclusive range [mintime, maxtime].
func (l *Ledger) Query(mintime, maxtime int32) int32 {
	if mintime > maxtime {
		return 0
	}

	var sum, count int64
	l.Ascend(mintime, maxtime, func(_, price int32) bool {
		sum += int64(price)
		count++
		return true
	})
	if count == 0 {
		return 0
	}
	return int32(sum / count)
}

// Ascend calls fn for each entry with timestamp in [mintime, maxtime], in
// ascending timestamp order, until fn returns false.
func (l *Ledger) Ascend(mintime, maxtime int32, fn func(timestamp, price int32) bool) {
	t := l.tree
	for n := t.ceiling(mintime); n != t.nil && n.ts <= maxtime; n = t.next(n) {
		if !fn(n.ts, n.price) {
			return
		}
	}
}

// Price returns the price stored at timestamp.
func (l *Ledger) Price(timestamp int32) (int32, bool) {
	n := l.tree.find(timestamp)
	if n == l.tree.nil {
		return 0, false
	}
	return n.price, true
}

// Len returns the number of distinct timestamps stored.
func (l *Ledger) Len() int {
	return l.tree.size
}

// Shared is a Ledger guarded by a single mutex, for use across connections.
type Shared struct {
	mu     sync.Mutex
	ledger *Ledger
}

// NewShared creates an empty Shared ledger.
func NewShared() *Shared {
	return &Shared{ledger: New()}
}

// Insert stores price at timestamp, replacing any earlier price.
func (s *Shared) Insert(timestamp, price int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.Insert(timestamp, price)
}

// Query returns the mean price over the inclusive range [mintime, maxtime].
func (s *Shared) Query(mintime, maxtime int32) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Query(mintime, maxtime)
}

// Len returns the number of distinct timestamps stored.
func (s *Shared) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Len()
}
