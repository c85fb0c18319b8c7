// Package smoketest implements the TCP echo service: every byte a client
// sends is written back until the client closes its side.
package smoketest
