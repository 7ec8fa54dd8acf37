// Package sqlstore provides a ports.Adapter over database/sql for SQLite (modernc.org/sqlite)
// and PostgreSQL (pgx), storing each context field in its own column.
package sqlstore
