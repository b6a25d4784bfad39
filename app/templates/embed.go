// Package templates holds the HTML views rendered by the Fiber engine.
package templates

import "embed"

//go:embed *.html
var FS embed.FS
