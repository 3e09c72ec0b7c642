// Package migrations embeds the numbered sqlite schema scripts.
package migrations

import "embed"

//go:embed *.sql
var All embed.FS
