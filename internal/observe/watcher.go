package observe

// Watching is passive. The watcher never signals, waits on or adopts
// the process it looks at.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ErrExited is returned by Confirm when the process is gone early.
var ErrExited = errors.New("process exited")

// PollInterval is how often Confirm looks at the process.
var PollInterval = 50 * time.Millisecond

// Watcher observes a PID. Nothing else.
type Watcher struct {
	pid int32
}

// New creates a watcher for a PID
func New(pid int) *Watcher {
	return &Watcher{pid: int32(pid)}
}

// Exists reports whether the PID is alive. Zombies count as gone.
func (w *Watcher) Exists() bool {
	if w.pid <= 0 {
		return false
	}
	ok, err := process.PidExists(w.pid)
	if err != nil || !ok {
		return false
	}

	p, err := process.NewProcess(w.pid)
	if err != nil {
		return false
	}
	status, err := p.Status()
	if err != nil {
		// Status is unsupported on some platforms; existence is enough.
		return true
	}
	for _, s := range status {
		if s == process.Zombie {
			return false
		}
	}
	return true
}

// Exe returns the executable path of the watched process
func (w *Watcher) Exe() (string, error) {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		return "", err
	}
	return p.Exe()
}

// Confirm polls until within has elapsed and then checks that the process
// is still alive and, when exe is non-empty, runs that image.
func (w *Watcher) Confirm(ctx context.Context, exe string, within time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, within)
	defer cancel()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		if !w.Exists() {
			return fmt.Errorf("pid %d: %w", w.pid, ErrExited)
		}

		select {
		case <-ctx.Done():
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ctx.Err()
			}
			if !w.Exists() {
				return fmt.Errorf("pid %d: %w", w.pid, ErrExited)
			}
			if exe == "" {
				return nil
			}
			got, err := w.Exe()
			if err != nil {
				return fmt.Errorf("pid %d: failed to read executable: %w", w.pid, err)
			}
			if got != exe {
				return fmt.Errorf("pid %d runs %s, want %s", w.pid, got, exe)
			}
			return nil
		case <-ticker.C:
		}
	}
}
