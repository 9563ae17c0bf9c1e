// Package migrations embeds the server's SQL schema migrations so goose can
// run them from the binary itself.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
