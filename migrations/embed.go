// Package migrations embeds the SQL schema so binaries can migrate without
// shipping the files alongside them.
package migrations

import "embed"

// FS holds the numbered up/down migration files
//
//go:embed *.sql
var FS embed.FS
