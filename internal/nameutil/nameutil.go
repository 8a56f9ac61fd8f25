// Package nameutil screens user-supplied names (project and distribution
// names from config) before they reach logs, prompts, or the database.
package nameutil

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ValidateName checks whether the provided name is usable as a project or
// distribution name. It rejects empty names, non-UTF8 bytes, and control
// characters. It does NOT mutate the input; use SanitizeName first when a
// cleaned-up value is wanted.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("invalid name: name cannot be empty")
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("invalid name: contains invalid encoding")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("invalid name: contains control character U+%04X (%q)", r, r)
		}
	}
	return nil
}

// SanitizeName removes common invisible/control characters and returns the
// sanitized string and whether any change was made. It strips control
// characters, NULs, and zero-width characters commonly introduced by
// copy/paste (e.g., U+200B), and trims surrounding whitespace.
func SanitizeName(name string) (string, bool) {
	if name == "" {
		return name, false
	}
	runes := []rune(name)
	out := make([]rune, 0, len(runes))
	changed := false
	for _, r := range runes {
		// keep printable chars and spaces/tabs but remove control chars
		if unicode.IsControl(r) {
			changed = true
			continue
		}
		// remove zero-width and other invisible separators
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			changed = true
			continue
		}
		out = append(out, r)
	}
	res := strings.TrimSpace(string(out))
	if res != name {
		changed = true
	}
	return res, changed
}
