// Package database manages the SQLite connection and schema migrations for
// the inventory store.
//
// The store is a single file opened with foreign keys enforced and a pool of
// exactly one connection. Schema creation is idempotent: embedded migrations
// are applied on startup and recorded in schema_migrations, so running
// against an existing database file is always safe.
package database
