//go:build !windows

package restart

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// HandleSignals restarts on every SIGHUP until ctx is done
func (c *Controller) HandleSignals(ctx context.Context) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigs:
			if _, err := c.Restart(ctx, "SIGHUP"); err != nil {
				c.cfg.Logger.Error("Restart on SIGHUP failed", map[string]interface{}{"error": err})
			}
		}
	}
}
