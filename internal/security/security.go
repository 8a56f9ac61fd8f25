// Package security screens hook lines from project config before they reach
// a shell. Hooks are user-authored, but configs get copied between machines
// and pasted from the internet, so obviously destructive lines are refused.
package security

import (
	"errors"
	"regexp"
	"strings"
)

var dangerousPatterns = []*regexp.Regexp{
	// Destructive filesystem ops
	regexp.MustCompile(`(?i)\brm\s+-rf\s+/?$`),
	regexp.MustCompile(`(?i)\brm\s+-rf\s+/`),
	regexp.MustCompile(`(?i)\bmkfs\b`),
	regexp.MustCompile(`(?i)\bdd\s+if=`),
	// fork bombs (e.g. :(){ :|:& };:)
	regexp.MustCompile(`:\(\)\s*\{`),
	// package managers removing all packages
	regexp.MustCompile(`(?i)\bapt\-get\s+remove\s+`),
	regexp.MustCompile(`(?i)\byum\s+remove\s+`),
	// wipe disk
	regexp.MustCompile(`(?i)\bwipefs\b`),
	// recursive permission blasts from the root
	regexp.MustCompile(`(?i)\bchmod\s+(-R\s+)?777\s+/`),
	// host power state
	regexp.MustCompile(`(?i)\b(shutdown|reboot|halt|poweroff)\b`),
}

// CheckHookLine returns nil if the hook line is allowed to run, or an error
// describing why it's blocked. Checking is conservative and not exhaustive.
func CheckHookLine(line string) error {
	cmd := strings.TrimSpace(line)
	if cmd == "" {
		return errors.New("empty hook line")
	}
	for _, re := range dangerousPatterns {
		if re.MatchString(cmd) {
			return errors.New("hook line appears destructive or unsafe")
		}
	}
	return nil
}
