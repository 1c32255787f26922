// Package web holds the marketing pages served at the site root. The status
// monitor probes the same pages, so they are embedded to keep the binary
// self-contained.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var content embed.FS

// Pages lists the pages real probes fetch.
var Pages = []string{"index.html", "features.html", "pricing.html"}

// FS returns the static files rooted at the site root.
func FS() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
