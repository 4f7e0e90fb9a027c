// Package gorm provides a database-backed registry record store.
//
// The file-system registry in the stores package has no locking; two
// concurrent handshakes for the same phone number can interleave writes.
// This backend keeps the records in a single table and serializes
// read-modify-write through transactions, at the cost of requiring a
// database handle. The session artifact itself still lives on disk either
// way; only the bookkeeping record moves.
package gorm
