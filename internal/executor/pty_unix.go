//go:build !windows

package executor

import (
	"io"
	"os/exec"

	"github.com/creack/pty"
	"golang.org/x/term"
)

const ptySupported = true

// isTerminal reports whether the given file descriptor refers to a terminal.
// It is a package-level variable so unit tests can override it to simulate
// terminal conditions without requiring a real TTY.
var isTerminal = func(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// ptyStarter starts cmd attached to a fresh pseudo-terminal and returns the
// master side. Tools see a TTY on stdout and keep their color and progress
// output. It is a package-level variable so unit tests can override it.
var ptyStarter = func(cmd *exec.Cmd) (io.ReadCloser, error) {
	return pty.Start(cmd)
}

// runPTY executes cmd under a pseudo-terminal, mirroring the combined
// output stream to out. The copy error is ignored: reading the master side
// returns EIO when the child exits, which is the normal shutdown path.
func runPTY(cmd *exec.Cmd, out io.Writer) error {
	ptmx, err := ptyStarter(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = ptmx.Close() }()
	_, _ = io.Copy(out, ptmx)
	return cmd.Wait()
}
