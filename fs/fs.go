// Package appfs embeds the files the binaries ship with: database migrations and assets.
package appfs

import "embed"

//go:embed migrations/*.sql all:assets
var FS embed.FS
