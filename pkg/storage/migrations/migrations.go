// Package migrations embeds the goose SQL migrations. The DDL sticks to types
// both Postgres and SQLite accept; lists are stored as JSON text.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
