//go:build windows

package relaunch

import "syscall"

const detachedProcess = 0x00000008 // DETACHED_PROCESS

// detachedProcAttr starts the child in a new process group without the
// parent's console.
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | detachedProcess,
	}
}
