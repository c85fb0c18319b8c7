// Package health reports service liveness over HTTP and gRPC.
//
// The HTTP handler serves GET /health as JSON and, when given, the
// Prometheus metrics handler. The gRPC server implements the standard
// grpc.health.v1.Health service with one status per service name plus the
// overall status under the empty name.
package health
