// Package migrations embeds the SQL schema files applied by goose.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
