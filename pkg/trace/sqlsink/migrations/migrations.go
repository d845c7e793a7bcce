// Package migrations embeds the sqlsink schema for golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
