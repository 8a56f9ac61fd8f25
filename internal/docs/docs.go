// Package docs carries the built-in publishing guide.
package docs

import (
	_ "embed"

	"github.com/charmbracelet/glamour"
)

//go:embed guide.md
var guide string

// Guide returns the raw markdown of the publishing guide.
func Guide() string {
	return guide
}

// RenderGuide formats the guide for a terminal of the given width.
// If rendering fails the raw markdown is returned so the content is
// never lost.
func RenderGuide(width int) string {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return guide
	}
	out, err := r.Render(guide)
	if err != nil {
		return guide
	}
	return out
}
