// Package migrations embeds the SQL migrations of the passport schema.
package migrations

import "embed"

// FS holds goose formatted SQL migrations.
//
//go:embed *.sql
var FS embed.FS
