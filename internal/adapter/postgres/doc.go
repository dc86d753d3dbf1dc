// Package postgres implements the counter, settings, and display-name
// repositories on PostgreSQL via pgx. Increments are expressed as single
// INSERT ... ON CONFLICT upserts so no row-level locking happens in Go.
package postgres
