// Package server implements the TCP accept loop shared by all services.
//
// A Server binds one listener, accepts connections sequentially and submits
// each one to a worker pool, where the service Handler runs it. Lifecycle:
//
//	Idle -> Running -> Draining -> Stopped
//
// Cancelling the Run context closes the listener and sets an immediate
// deadline on every live connection, so blocked reads and writes return.
// The server then waits for the pool to drain. A pool that stays saturated
// stops the accept loop but leaves running handlers alone.
package server
