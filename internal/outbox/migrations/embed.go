// Package migrations embeds the outbox journal schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
