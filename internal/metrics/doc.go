// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics (all labelled by service):
//   - Accepted, active and rejected connections
//   - Worker pool occupancy, admission retries and rejections
//   - Records processed by command, protocol violations, transport errors
//
// A nil *Service is valid and records nothing, so components can be used
// without a registry in tests.
package metrics
