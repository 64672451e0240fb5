//go:build !windows

package tui

import (
	"os"
	"os/exec"
)

// bestEffortResetTTY restores cooked mode if the program was interrupted
// before bubbletea could do it.
func bestEffortResetTTY() {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return
	}
	if (fi.Mode() & os.ModeCharDevice) == 0 {
		return
	}
	// /dev/tty so a redirected stdin does not matter.
	_ = exec.Command("sh", "-c", "stty sane < /dev/tty >/dev/null 2>&1 || true").Run()
}
