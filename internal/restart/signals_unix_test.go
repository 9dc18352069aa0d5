//go:build !windows

package restart

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandleSignalsRestartsOnSIGHUP(t *testing.T) {
	// Keep SIGHUP from terminating the test binary before the handler
	// has registered.
	guard := make(chan os.Signal, 16)
	signal.Notify(guard, syscall.SIGHUP)
	defer signal.Stop(guard)

	h := newHarness(t, harnessOpts{})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.ctrl.HandleSignals(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool {
		_ = syscall.Kill(os.Getpid(), syscall.SIGHUP)
		return h.spawns.Load() > 0
	}, 5*time.Second, 20*time.Millisecond)

	last := h.recorder.Last()
	require.NotNil(t, last)

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleSignals did not return after cancel")
	}
}
