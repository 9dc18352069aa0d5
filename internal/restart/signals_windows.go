//go:build windows

package restart

import "context"

// HandleSignals blocks until ctx is done. There is no SIGHUP on Windows.
func (c *Controller) HandleSignals(ctx context.Context) {
	<-ctx.Done()
}
