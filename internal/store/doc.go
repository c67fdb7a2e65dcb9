// Package store provides the append-only message log for the gateway.
//
// # Architecture
//
// MessageLog is the only interface: Append writes one immutable row and
// ListMessages reads a session's history back in append order. Three
// implementations satisfy it:
//
//   - SQLiteStore: the default, on modernc.org/sqlite ("sqlite") or
//     mattn/go-sqlite3 ("sqlite3")
//   - BadgerStore: a badger key-value database, on disk or in memory
//   - MockStore: an in-memory double with append failure injection
//
// Open picks one from the database.driver config value.
//
// # Layout
//
// SQLite keeps a single table:
//
//	messages(id INTEGER PRIMARY KEY AUTOINCREMENT, session_id, role, message, timestamp)
//
// Badger stores each row as JSON under msg/<escaped session id>/<20-digit id>
// with ids drawn from the seq/messages sequence.
//
// # Ordering
//
// Row ids strictly increase. Timestamps are UTC RFC3339Nano strings and never
// precede the previously appended row, including across restarts.
//
// The core never updates or deletes rows; retention is left to operators.
package store
