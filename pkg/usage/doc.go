// Package usage persists completed provider requests to a SQLite ledger
// for later inspection. Writes are asynchronous: the observer hook queues
// records and a single writer goroutine inserts them, dropping (and
// counting) records rather than ever blocking a request path.
package usage
