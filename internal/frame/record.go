package frame

import (
	"encoding/binary"
	"fmt"
)

// RecordSize is the size in bytes of one encoded record.
const RecordSize = 9

// Command is the one-byte command tag of a record.
type Command byte

const (
	CommandInsert Command = 'I'
	CommandQuery  Command = 'Q'
)

// Valid reports whether c is a known command tag.
func (c Command) Valid() bool {
	return c == CommandInsert || c == CommandQuery
}

func (c Command) String() string {
	switch c {
	case CommandInsert:
		return "insert"
	case CommandQuery:
		return "query"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(c))
	}
}

// Record is one decoded protocol unit.
type Record struct {
	Command Command
	Arg1    int32
	Arg2    int32
}

// Decode decodes the first RecordSize bytes of b. It panics if b is short.
func Decode(b []byte) Record {
	_ = b[RecordSize-1]
	return Record{
		Command: Command(b[0]),
		Arg1:    int32(binary.BigEndian.Uint32(b[1:5])),
		Arg2:    int32(binary.BigEndian.Uint32(b[5:9])),
	}
}

// Append appends the wire encoding of r to dst.
func (r Record) Append(dst []byte) []byte {
	dst = append(dst, byte(r.Command))
	dst = binary.BigEndian.AppendUint32(dst, uint32(r.Arg1))
	return binary.BigEndian.AppendUint32(dst, uint32(r.Arg2))
}

// Bytes returns the wire encoding of r.
func (r Record) Bytes() []byte {
	return r.Append(make([]byte, 0, RecordSize))
}

// Insert builds an insert record.
func Insert(timestamp, price int32) Record {
	return Record{Command: CommandInsert, Arg1: timestamp, Arg2: price}
}

// Query builds a query record.
func Query(mintime, maxtime int32) Record {
	return Record{Command: CommandQuery, Arg1: mintime, Arg2: maxtime}
}
