//go:build !windows

package extproc

import "syscall"

// sessionAttr places the subprocess in its own session, detached from the
// parent's controlling terminal.
func sessionAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
