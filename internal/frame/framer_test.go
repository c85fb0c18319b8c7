package frame

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"testing"
	"testing/iotest"
)

// chunkReader returns data in chunks of the given sizes, then the remainder.
type chunkReader struct {
	data   []byte
	chunks []int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := len(c.data)
	if len(c.chunks) > 0 {
		n = c.chunks[0]
		c.chunks = c.chunks[1:]
	}
	n = min(n, len(p), len(c.data))
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func encodeAll(recs ...Record) []byte {
	var b []byte
	for _, r := range recs {
		b = r.Append(b)
	}
	return b
}

func readAll(t *testing.T, r *Reader) []Record {
	t.Helper()
	var out []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, rec)
	}
}

func TestDecode(t *testing.T) {
	raw := []byte{0x49, 0x00, 0x00, 0x30, 0x39, 0x00, 0x00, 0x00, 0x65}
	got := Decode(raw)
	want := Record{Command: CommandInsert, Arg1: 12345, Arg2: 101}
	if got != want {
		t.Errorf("Decode = %+v, want %+v", got, want)
	}
}

func TestDecodeNegative(t *testing.T) {
	raw := []byte{0x51, 0xff, 0xff, 0xff, 0xff, 0x80, 0x00, 0x00, 0x00}
	got := Decode(raw)
	if got.Arg1 != -1 {
		t.Errorf("Arg1 = %d, want -1", got.Arg1)
	}
	if got.Arg2 != -2147483648 {
		t.Errorf("Arg2 = %d, want -2147483648", got.Arg2)
	}
}

func TestRecordBytes(t *testing.T) {
	got := Insert(7, 100).Bytes()
	want := []byte{0x49, 0, 0, 0, 7, 0, 0, 0, 100}
	if !bytes.Equal(got, want) {
		t.Errorf("Bytes = %v, want %v", got, want)
	}
}

func TestCommandValid(t *testing.T) {
	tests := []struct {
		cmd  Command
		want bool
	}{
		{CommandInsert, true},
		{CommandQuery, true},
		{Command('X'), false},
		{Command(0), false},
		{Command('i'), false},
	}
	for _, tt := range tests {
		if got := tt.cmd.Valid(); got != tt.want {
			t.Errorf("Command(%q).Valid() = %v, want %v", byte(tt.cmd), got, tt.want)
		}
	}
}

func TestFramerFeedSplits(t *testing.T) {
	rec := Insert(12345, 101)
	raw := rec.Bytes()

	splits := map[string][]int{
		"whole":     {9},
		"1+1+7":     {1, 1, 7},
		"3+6":       {3, 6},
		"8+1":       {8, 1},
		"byte-wise": {1, 1, 1, 1, 1, 1, 1, 1, 1},
	}

	for name, sizes := range splits {
		t.Run(name, func(t *testing.T) {
			f := NewFramer(1)
			var got []Record
			off := 0
			for i, n := range sizes {
				out := f.Feed(raw[off : off+n])
				off += n
				if i < len(sizes)-1 && len(out) != 0 {
					t.Fatalf("Feed chunk %d yielded %d records early", i, len(out))
				}
				got = append(got, out...)
			}
			if len(got) != 1 || got[0] != rec {
				t.Errorf("records = %+v, want [%+v]", got, rec)
			}
			if f.Buffered() != 0 {
				t.Errorf("Buffered = %d, want 0", f.Buffered())
			}
		})
	}
}

func TestFramerFeedManyRecordsAtOnce(t *testing.T) {
	want := []Record{Insert(1, 10), Insert(2, 20), Query(0, 5), Insert(-3, -30)}
	raw := encodeAll(want...)
	raw = append(raw, 0x49, 0x00) // partial trailing record

	// A two-record buffer forces Feed to cycle through the buffer.
	f := NewFramer(2)
	got := f.Feed(raw)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("records = %+v, want %+v", got, want)
	}
	if f.Buffered() != 2 {
		t.Errorf("Buffered = %d, want 2", f.Buffered())
	}

	// The held bytes 0x49 0x00 are the first two bytes of this record.
	rest := Insert(99, 9).Bytes()
	got = f.Feed(rest[2:])
	if len(got) != 1 || got[0] != Insert(99, 9) {
		t.Errorf("records = %+v, want [%+v]", got, Insert(99, 9))
	}
}

func TestReaderDeliveryEquivalence(t *testing.T) {
	want := []Record{
		Insert(12345, 101),
		Insert(12346, 102),
		Insert(12347, 100),
		Query(12288, 16384),
		Record{Command: 'X', Arg1: 1, Arg2: 2},
	}
	raw := encodeAll(want...)

	readers := map[string]func() io.Reader{
		"single read": func() io.Reader { return bytes.NewReader(raw) },
		"one byte":    func() io.Reader { return iotest.OneByteReader(bytes.NewReader(raw)) },
		"half reads":  func() io.Reader { return iotest.HalfReader(bytes.NewReader(raw)) },
		"data+eof":    func() io.Reader { return iotest.DataErrReader(bytes.NewReader(raw)) },
		"uneven":      func() io.Reader { return &chunkReader{data: raw, chunks: []int{1, 1, 7, 3, 6, 13, 2, 4}} },
	}

	for name, mk := range readers {
		for _, bufRecords := range []int{1, 2, DefaultBufferRecords} {
			r := NewReader(mk(), bufRecords)
			got := readAll(t, r)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("%s (buffer %d): records = %+v, want %+v", name, bufRecords, got, want)
			}
		}
	}
}

func TestReaderDiscardsTrailingPartial(t *testing.T) {
	raw := append(Insert(1, 1).Bytes(), 0x51, 0x00, 0x00)
	r := NewReader(bytes.NewReader(raw), 4)

	got := readAll(t, r)
	if len(got) != 1 {
		t.Fatalf("records = %d, want 1", len(got))
	}
	if r.Buffered() != 0 {
		t.Errorf("Buffered = %d, want 0 after EOF", r.Buffered())
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next after end = %v, want io.EOF", err)
	}
}

func TestReaderEmptyStream(t *testing.T) {
	r := NewReader(bytes.NewReader(nil), 1)
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next = %v, want io.EOF", err)
	}
}

func TestReaderReturnsRecordsBeforeError(t *testing.T) {
	boom := errors.New("connection reset")
	raw := encodeAll(Insert(1, 1), Insert(2, 2))
	r := NewReader(io.MultiReader(bytes.NewReader(raw), iotest.ErrReader(boom)), 8)

	for i := 0; i < 2; i++ {
		if _, err := r.Next(); err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
	}
	if _, err := r.Next(); !errors.Is(err, boom) {
		t.Errorf("Next = %v, want %v", err, boom)
	}
}

type zeroReader struct{}

func (zeroReader) Read([]byte) (int, error) { return 0, nil }

func TestReaderNoProgress(t *testing.T) {
	r := NewReader(zeroReader{}, 1)
	if _, err := r.Next(); !errors.Is(err, io.ErrNoProgress) {
		t.Errorf("Next = %v, want io.ErrNoProgress", err)
	}
}
