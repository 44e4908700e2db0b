// Package migrations embeds the numbered SQLite schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
