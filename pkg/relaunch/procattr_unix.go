//go:build !windows

package relaunch

import "syscall"

// detachedProcAttr puts the child in its own process group so a signal
// aimed at the parent's group does not take it down too.
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}
}
