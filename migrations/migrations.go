// Package migrations embeds the stock ledger schema migrations.
package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
