package frame

import (
	"errors"
	"io"
)

// DefaultBufferRecords is the default buffer size of a Framer, in records.
const DefaultBufferRecords = 512

// maxEmptyReads bounds consecutive (0, nil) reads before giving up.
const maxEmptyReads = 100

// Framer holds the partial-record state of a byte stream.
// It is not safe for concurrent use.
type Framer struct {
	buf []byte
	n   int // buffered, unconsumed bytes at buf[:n]
}

// NewFramer creates a Framer whose buffer holds bufferRecords records.
// Values below 1 use a single-record buffer.
func NewFramer(bufferRecords int) *Framer {
	if bufferRecords < 1 {
		bufferRecords = 1
	}
	return &Framer{buf: make([]byte, bufferRecords*RecordSize)}
}

// Feed appends p to the stream and returns every record completed by it,
// in order. Bytes of an incomplete trailing record are kept for the next call.
func (f *Framer) Feed(p []byte) []Record {
	var out []Record
	for len(p) > 0 {
		c := copy(f.buf[f.n:], p)
		f.n += c
		p = p[c:]
		out = f.drain(out)
	}
	return out
}

// Buffered returns the number of bytes held for an incomplete record.
func (f *Framer) Buffered() int {
	return f.n
}

// Reset discards any buffered bytes.
func (f *Framer) Reset() {
	f.n = 0
}

// drain decodes all complete records in the buffer onto dst and moves the
// leftover bytes to the start of the buffer.
func (f *Framer) drain(dst []Record) []Record {
	off := 0
	for f.n-off >= RecordSize {
		dst = append(dst, Decode(f.buf[off:off+RecordSize]))
		off += RecordSize
	}
	if off > 0 {
		f.n = copy(f.buf, f.buf[off:f.n])
	}
	return dst
}

// Reader yields records from an underlying stream.
type Reader struct {
	src     io.Reader
	framer  *Framer
	pending []Record
	next    int
	err     error
}

// NewReader creates a Reader over src with a buffer of bufferRecords records.
func NewReader(src io.Reader, bufferRecords int) *Reader {
	return &Reader{
		src:    src,
		framer: NewFramer(bufferRecords),
	}
}

// Next returns the next record. It returns io.EOF once the stream ends;
// a trailing partial record is discarded. Other errors come from the
// underlying reader and are returned after any records decoded before them.
func (r *Reader) Next() (Record, error) {
	for empty := 0; ; {
		if r.next < len(r.pending) {
			rec := r.pending[r.next]
			r.next++
			return rec, nil
		}
		if r.err != nil {
			return Record{}, r.err
		}

		n, err := r.src.Read(r.framer.buf[r.framer.n:])
		if n > 0 {
			empty = 0
			r.framer.n += n
			r.pending = r.framer.drain(r.pending[:0])
			r.next = 0
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.framer.Reset()
			}
			r.err = err
			continue
		}
		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				r.err = io.ErrNoProgress
			}
		}
	}
}

// Buffered returns the number of bytes held for an incomplete record.
func (r *Reader) Buffered() int {
	return r.framer.Buffered()
}
