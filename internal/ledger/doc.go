// Package ledger implements the in-memory price store of the means-to-an-end
// service.
//
// Prices are kept in a red-black tree keyed by timestamp:
//   - Insert is O(log n) and replaces the price of an existing timestamp
//   - Query scans ascending from the first timestamp >= min and stops at the
//     first timestamp > max
//
// A Ledger is owned by a single connection and is not safe for concurrent use.
// Shared wraps a Ledger with a mutex for the process-wide ledger mode.
package ledger
