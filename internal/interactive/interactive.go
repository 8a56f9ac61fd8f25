// Package interactive holds the small pieces of terminal interaction the CLI
// needs: yes/no confirmation and hidden token entry.
package interactive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	xterm "golang.org/x/term"
)

// Test hooks.
var (
	readPassword = xterm.ReadPassword
	isTerminal   = func(fd int) bool { return xterm.IsTerminal(fd) }
)

// Confirm prompts with msg and expects y/n on r. Returns true for yes.
// EOF and empty input count as no.
func Confirm(r io.Reader, w io.Writer, msg string) bool {
	fmt.Fprintf(w, "%s [y/N]: ", msg)
	br := bufio.NewReader(r)
	line, _ := br.ReadString('\n')
	resp := strings.TrimSpace(strings.ToLower(line))
	return resp == "y" || resp == "yes"
}

// ReadSecret prompts on w and reads a value from r without echoing when r is
// a terminal. Piped input falls back to a plain line read so scripts can
// drive `pyship token set`.
func ReadSecret(r io.Reader, w io.Writer, msg string) (string, error) {
	fmt.Fprintf(w, "%s: ", msg)
	if f, ok := r.(*os.File); ok && isTerminal(int(f.Fd())) {
		b, err := readPassword(int(f.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	br := bufio.NewReader(r)
	line, err := br.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
