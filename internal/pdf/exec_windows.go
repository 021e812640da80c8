//go:build windows

package pdf

import (
	"os/exec"
	"syscall"
)

// hideWindowOnWindows keeps pdftoppm from flashing a console window.
func hideWindowOnWindows(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: 0x08000000, // CREATE_NO_WINDOW
	}
}
