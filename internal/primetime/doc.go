// Package primetime implements the prime checking service.
//
// Requests and responses are JSON objects, one per line:
//
//	{"method":"isPrime","number":123}
//	{"method":"isPrime","prime":false}
//
// A malformed request gets a single "malformed request" line and the
// connection is closed. Numbers are parsed exactly, so integers of any size
// are tested and non-integers are never prime.
package primetime
