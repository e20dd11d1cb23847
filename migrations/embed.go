// Package migrations embeds the Postgres schema used by cmd/migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
