// Package migrations embeds the SQL schema migrations for authcore.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
