// Package sanitize cleans streaming tool output for display in the TUI
// viewport. Tools like pytest and black emit color (SGR) sequences worth
// keeping, but also control sequences that would corrupt the surrounding
// interface: alternate screen switches, clear-screen, cursor movement and
// OSC title changes. Those are stripped; progress-bar carriage returns are
// normalized so each update lands on its own line.
package sanitize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	oscRe = regexp.MustCompile(`\x1b\][^\x07]*\x07`)
	csiRe = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
)

// RunOutput removes non-SGR control sequences while preserving color.
// Cursor-forward (CUF "C") and column-absolute (CHA "G") sequences are
// replaced with spaces so column-aligned output stays readable; CR and
// CRLF are normalized to LF.
func RunOutput(in string) string {
	out := strings.ReplaceAll(in, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "\n")

	// OSC sequences (window title changes and the like)
	out = oscRe.ReplaceAllString(out, "")

	out = csiRe.ReplaceAllStringFunc(out, replaceCsi)
	return out
}

// replaceCsi keeps SGR codes, converts cursor positioning to spacing and
// drops everything else.
func replaceCsi(s string) string {
	suffix := s[len(s)-1]
	switch suffix {
	case 'm':
		return s
	case 'C':
		// Cursor Forward: \x1b[<n>C becomes n spaces (default 1).
		return strings.Repeat(" ", csiParam(s, 1))
	case 'G':
		// Column-absolute cannot be tracked in a streaming sanitizer;
		// a fixed separator keeps neighbouring text apart.
		return "  "
	default:
		return ""
	}
}

// csiParam extracts the first numeric parameter from a CSI sequence like
// \x1b[<n><letter>. Returns def if the parameter is absent or invalid.
func csiParam(s string, def int) int {
	body := s[2 : len(s)-1]
	body = strings.TrimLeft(body, "?")
	if body == "" {
		return def
	}
	if idx := strings.IndexByte(body, ';'); idx >= 0 {
		body = body[:idx]
	}
	if n, err := strconv.Atoi(body); err == nil && n > 0 {
		return n
	}
	return def
}
