// Package storage opens the SQL database backing users, settings and
// inventory, and applies the embedded goose migrations.
//
// Two drivers are supported: "postgres" (lib/pq) for deployments and
// "sqlite3" (mattn/go-sqlite3) for local development and tests. Queries in the
// store packages use $N placeholders, which both drivers accept.
//
//	db, err := storage.Open(ctx, storage.Config{Driver: "postgres", URL: dsn})
//
// IsUniqueViolation classifies constraint errors from either driver so
// callers can tell a lost insert race from a real failure.
package storage
