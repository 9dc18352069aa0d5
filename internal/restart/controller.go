// Package restart drives relaunches for the relaunchd host. It
// serialises requests, traces them, optionally confirms that the new
// instance came up and hands the old instance over to shutdown.
package restart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/psantana5/relaunch/internal/observe"
	"github.com/psantana5/relaunch/internal/report"
	"github.com/psantana5/relaunch/pkg/logging"
	"github.com/psantana5/relaunch/pkg/tracing"
)

// ErrInProgress is returned while another restart is being handled.
var ErrInProgress = errors.New("restart already in progress")

// Relauncher is the primitive the controller drives
type Relauncher interface {
	Relaunch() error
}

// Confirmer checks that a spawned child is still alive after a while
type Confirmer func(ctx context.Context, pid int, exe string, within time.Duration) error

// ConfirmWithWatcher confirms through a gopsutil watcher
func ConfirmWithWatcher(ctx context.Context, pid int, exe string, within time.Duration) error {
	return observe.New(pid).Confirm(ctx, exe, within)
}

// Shutdowner is told to stop the old instance once a successor exists
type Shutdowner interface {
	Trigger(reason string)
}

// Config wires a Controller
type Config struct {
	Relauncher Relauncher
	Recorder   *report.Recorder
	Tracer     *tracing.Provider
	Logger     *logging.Logger

	// Shutdown is triggered after a spawned restart when ExitAfter is set.
	Shutdown  Shutdowner
	ExitAfter bool

	// ConfirmWithin > 0 waits that long and checks the child is alive.
	ConfirmWithin time.Duration
	Confirm       Confirmer
}

// Controller runs one restart at a time
type Controller struct {
	cfg Config

	mu         sync.Mutex
	restarting bool
}

// New creates a controller. Relauncher, Recorder and Logger are required.
func New(cfg Config) (*Controller, error) {
	if cfg.Relauncher == nil || cfg.Recorder == nil || cfg.Logger == nil {
		return nil, errors.New("restart: relauncher, recorder and logger are required")
	}
	if cfg.Tracer == nil {
		p, err := tracing.InitTracer(tracing.Config{ServiceName: "relaunchd"}, cfg.Logger)
		if err != nil {
			return nil, err
		}
		cfg.Tracer = p
	}
	if cfg.Confirm == nil {
		cfg.Confirm = ConfirmWithWatcher
	}
	return &Controller{cfg: cfg}, nil
}

// InProgress reports whether a restart is being handled right now
func (c *Controller) InProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restarting
}

func (c *Controller) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.restarting {
		return false
	}
	c.restarting = true
	return true
}

func (c *Controller) end() {
	c.mu.Lock()
	c.restarting = false
	c.mu.Unlock()
}

// Restart relaunches the program and returns the recorded result.
//
// A path resolution failure is returned as an error together with its
// result. A spawn failure is not an error: the result carries outcome
// spawn_failed and this instance keeps running.
func (c *Controller) Restart(ctx context.Context, reason string) (*report.Result, error) {
	if !c.begin() {
		return nil, ErrInProgress
	}
	defer c.end()

	ctx, span := c.cfg.Tracer.StartSpan(ctx, "relaunch", attribute.String("relaunch.reason", reason))
	defer span.End()

	c.cfg.Logger.Info("Restart requested", map[string]interface{}{"reason": reason})

	relaunchErr := c.cfg.Relauncher.Relaunch()

	res := c.cfg.Recorder.Last()
	if res == nil {
		// Only possible with a relauncher that never reports to the recorder.
		err := errors.New("restart: relauncher did not report an attempt")
		tracing.SetError(ctx, err)
		return nil, err
	}
	res.Reason = reason

	span.SetAttributes(
		attribute.String("relaunch.outcome", res.Outcome),
		attribute.String("relaunch.path", res.Path),
		attribute.Int("relaunch.pid", res.PID),
	)

	if relaunchErr != nil {
		tracing.SetError(ctx, relaunchErr)
		return res, fmt.Errorf("restart failed: %w", relaunchErr)
	}
	if !res.Spawned() {
		tracing.AddEvent(ctx, "spawn_failed", attribute.String("error", res.Error))
		c.cfg.Logger.Warn("Restart did not start a new instance; staying up", map[string]interface{}{
			"reason": reason,
			"error":  res.Error,
		})
		return res, nil
	}

	if c.cfg.ConfirmWithin > 0 {
		ok := true
		if err := c.cfg.Confirm(ctx, res.PID, res.Path, c.cfg.ConfirmWithin); err != nil {
			ok = false
			tracing.AddEvent(ctx, "confirm_failed", attribute.String("error", err.Error()))
			c.cfg.Logger.Warn("New instance not confirmed", map[string]interface{}{
				"pid":   res.PID,
				"error": err,
			})
		}
		res.Confirmed = &ok
		span.SetAttributes(attribute.Bool("relaunch.confirmed", ok))
		if !ok {
			return res, nil
		}
	}

	if c.cfg.ExitAfter && c.cfg.Shutdown != nil {
		c.cfg.Logger.Info("Handing over to new instance", map[string]interface{}{"pid": res.PID})
		c.cfg.Shutdown.Trigger(fmt.Sprintf("relaunched as pid %d (%s)", res.PID, reason))
	}
	return res, nil
}
