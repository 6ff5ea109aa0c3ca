// Package web holds the HTML templates and static assets served by the server.
package web

import "embed"

// Templates contains the page layouts and partials under templates/.
//
//go:embed templates/*.html
var Templates embed.FS

// Static contains the stylesheet and scripts under static/.
//
//go:embed static
var Static embed.FS
