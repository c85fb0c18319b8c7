// Package frame decodes the fixed-size binary records of the price ledger
// protocol.
//
// Wire format (9 bytes, no length prefix):
//
//	offset 0  command  1 byte   'I' (insert) or 'Q' (query)
//	offset 1  arg1     int32    big-endian
//	offset 5  arg2     int32    big-endian
//
// A Framer reassembles records from arbitrary chunks of a byte stream.
// A Reader drives a Framer from an io.Reader, one underlying read per step.
package frame
