// Package relaunch starts a fresh, independent instance of the running
// program from its own executable image and lets the caller carry on.
//
// The new process is never owned. Its handle is released as soon as the
// OS accepts the spawn, nothing waits on it, and a failed spawn is reported
// to observers and the logger but never to the caller. Only a failure to
// resolve the executable path is returned as an error.
package relaunch

import (
	"errors"
	"os"
	"time"

	"github.com/psantana5/relaunch/pkg/logging"
)

// Logger is the subset of logging.Logger the relauncher writes to.
type Logger interface {
	Debug(message string, fields ...map[string]interface{})
	Warn(message string, fields ...map[string]interface{})
}

// Resolver returns the absolute path of the running executable.
type Resolver func() (string, error)

// Relauncher performs relaunches with a fixed launch policy.
// It is immutable after New and safe for concurrent use. Concurrent calls
// are not deduplicated: each one resolves and spawns on its own.
type Relauncher struct {
	resolve Resolver
	spawner Spawner
	logger  Logger

	argsMode argsMode
	args     []string

	replaceEnv bool
	env        []string
	extraEnv   []string

	dir       string
	stdio     bool
	observers []Observer
}

type argsMode int

const (
	argsNone argsMode = iota
	argsInherit
	argsExplicit
)

// New creates a Relauncher. Without options the child gets no arguments,
// the parent's environment, working directory and standard streams.
func New(opts ...Option) *Relauncher {
	r := &Relauncher{
		resolve: Executable,
		spawner: ExecSpawner{},
		logger:  logging.NewLoggerTo(os.Stderr, logging.WARN, false).WithField("component", "relaunch"),
		stdio:   true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var std = New()

// Relaunch starts a new instance of the running program with the default
// launch policy. See (*Relauncher).Relaunch.
func Relaunch() error {
	return std.Relaunch()
}

// Relaunch resolves the running executable and starts a new, detached
// process from it without waiting for it.
//
// It returns an error matching ErrExecutablePathUnavailable when the path
// cannot be resolved; no process is started in that case. Spawn failures
// are logged and handed to observers, and Relaunch still returns nil.
func (r *Relauncher) Relaunch() error {
	attempt := Attempt{StartedAt: time.Now()}

	path, err := r.resolve()
	if err == nil && path == "" {
		err = errors.New("resolver returned an empty path")
	}
	if err != nil {
		perr := &PathError{Err: err}
		attempt.Outcome = OutcomePathUnavailable
		attempt.Err = perr
		attempt.CompletedAt = time.Now()

		r.logger.Warn("relaunch aborted: executable path unavailable", map[string]interface{}{
			"error": err,
		})
		r.notify(attempt)
		return perr
	}

	launch := r.launchFor(path)
	attempt.Path = path
	attempt.Args = launch.Args

	pid, err := r.spawner.Spawn(launch)
	attempt.CompletedAt = time.Now()
	if err != nil {
		attempt.Outcome = OutcomeSpawnFailed
		attempt.Err = &SpawnError{Path: path, Err: err}

		r.logger.Warn("relaunch spawn failed, caller continues", map[string]interface{}{
			"path":  path,
			"error": err,
		})
		r.notify(attempt)
		return nil
	}

	attempt.Outcome = OutcomeSpawned
	attempt.PID = pid
	r.logger.Debug("relaunched", map[string]interface{}{
		"path": path,
		"pid":  pid,
	})
	r.notify(attempt)
	return nil
}

// launchFor builds the launch description for one call. Inherited values
// are read at call time, not at construction.
func (r *Relauncher) launchFor(path string) Launch {
	l := Launch{
		Path:  path,
		Dir:   r.dir,
		Stdio: r.stdio,
	}

	switch r.argsMode {
	case argsInherit:
		if len(os.Args) > 1 {
			l.Args = append([]string(nil), os.Args[1:]...)
		}
	case argsExplicit:
		l.Args = append([]string(nil), r.args...)
	}

	if r.replaceEnv || len(r.extraEnv) > 0 {
		var base []string
		if r.replaceEnv {
			base = r.env
		} else {
			base = os.Environ()
		}
		// Non-nil even when empty: a nil Env means "inherit" to os/exec.
		l.Env = make([]string, 0, len(base)+len(r.extraEnv))
		l.Env = append(l.Env, base...)
		l.Env = append(l.Env, r.extraEnv...)
	}

	return l
}

// notify hands the attempt to every observer. A panicking observer is
// logged and skipped.
func (r *Relauncher) notify(a Attempt) {
	for _, o := range r.observers {
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.logger.Warn("relaunch observer panicked", map[string]interface{}{
						"panic": p,
					})
				}
			}()
			o.Observe(a)
		}()
	}
}
