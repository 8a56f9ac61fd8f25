//go:build windows

package executor

import (
	"fmt"
	"io"
	"os/exec"
)

const ptySupported = false

// isTerminal always returns false on Windows since PTY-based execution is
// not supported. The pipe streaming path is used instead.
var isTerminal = func(_ uintptr) bool {
	return false
}

// runPTY is never reached on Windows; Run falls back to pipes.
func runPTY(_ *exec.Cmd, _ io.Writer) error {
	return fmt.Errorf("PTY not supported on Windows")
}
