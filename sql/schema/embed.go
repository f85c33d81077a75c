// Package schema embeds the goose migrations so the server can migrate the database on start up.
package schema

import "embed"

//go:embed *.sql
var FS embed.FS
