package relaunch

// The child is never owned.
// Once the OS accepts the spawn, the relauncher is done with it.

import (
	"os"
	"os/exec"
)

// Launch describes the process to start.
type Launch struct {
	Path  string
	Args  []string // argv[1:]
	Env   []string // nil inherits the parent's environment
	Dir   string   // empty inherits the parent's working directory
	Stdio bool     // share the parent's stdin/stdout/stderr
}

// Spawner starts a process and returns without waiting for it.
type Spawner interface {
	Spawn(l Launch) (pid int, err error)
}

// SpawnerFunc adapts a function to Spawner.
type SpawnerFunc func(l Launch) (int, error)

// Spawn calls f(l).
func (f SpawnerFunc) Spawn(l Launch) (int, error) {
	return f(l)
}

// ExecSpawner starts detached processes with os/exec.
type ExecSpawner struct{}

// Spawn starts l detached from the caller and releases the handle.
func (ExecSpawner) Spawn(l Launch) (int, error) {
	cmd := exec.Command(l.Path, l.Args...)
	cmd.Env = l.Env
	cmd.Dir = l.Dir

	// Only *os.File streams: anything else makes os/exec start copy
	// goroutines that live until the child exits.
	if l.Stdio {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	cmd.SysProcAttr = detachedProcAttr()

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid

	// Fire and forget: nothing will ever Wait on this process.
	_ = cmd.Process.Release()

	return pid, nil
}
