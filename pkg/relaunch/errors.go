package relaunch

import (
	"errors"
	"fmt"
)

// ErrExecutablePathUnavailable is matched by the error Relaunch returns
// when the OS cannot report the running executable.
var ErrExecutablePathUnavailable = errors.New("executable path unavailable")

// PathError wraps the OS failure behind ErrExecutablePathUnavailable.
type PathError struct {
	Err error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("relaunch: %v: %v", ErrExecutablePathUnavailable, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// Is reports ErrExecutablePathUnavailable as a match.
func (e *PathError) Is(target error) bool {
	return target == ErrExecutablePathUnavailable
}

// SpawnError describes a spawn the OS refused. It is only ever handed to
// observers; Relaunch does not return it.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("relaunch: spawn %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
