// Package means implements the "Means to an End" price ledger protocol.
//
// Clients send 9-byte records: a command byte followed by two big-endian
// int32 arguments.
//
//	'I' timestamp price    store price at timestamp, no response
//	'Q' mintime maxtime    respond with the int32 mean over [mintime, maxtime]
//
// Any other command byte closes the connection without a response. Each
// connection owns its own ledger unless the handler is configured with a
// shared one.
package means
