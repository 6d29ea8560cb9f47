// Package postgres is the PostgreSQL store backend, built on pgx/v5.
//
// Runs serialize their config, stats and error list as JSONB. Locks and
// quota counters are single-statement compare-and-set operations, so
// the backend is safe for multiple daemon instances sharing one
// database. Migrations are embedded SQL files tracked in
// autowebsites_migrations.
package postgres
