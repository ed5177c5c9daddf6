// Package migrations embeds the goose SQL migrations for the lifecycle schema.
package migrations

import "embed"

// FS holds the SQL migration files at its root.
//
//go:embed *.sql
var FS embed.FS
