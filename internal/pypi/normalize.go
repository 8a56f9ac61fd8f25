package pypi

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	separatorRuns = regexp.MustCompile(`[-_.]+`)
	namePattern   = regexp.MustCompile(`(?i)^[a-z0-9]([a-z0-9._-]*[a-z0-9])?$`)
)

// NormalizeName lowercases name and collapses runs of '-', '_' and '.' into
// a single '-', the form indexes use to compare project names (PEP 503).
func NormalizeName(name string) string {
	return strings.ToLower(separatorRuns.ReplaceAllString(strings.TrimSpace(name), "-"))
}

// ValidateName checks name against the distribution naming rules: ASCII
// letters, digits, '.', '_' and '-', starting and ending with a letter or
// digit.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("invalid name: name cannot be empty")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid name %q: use ASCII letters, digits, '.', '_' and '-', starting and ending with a letter or digit", name)
	}
	return nil
}
