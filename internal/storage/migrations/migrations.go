// Package migrations embeds the vault schema applied by goose.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
