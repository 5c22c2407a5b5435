// Package migrations embeds the SQL schema. Files are written in the Postgres
// dialect and translated by the store when running on SQLite.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
