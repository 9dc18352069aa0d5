package relaunch

import (
	"fmt"
	"path/filepath"

	"github.com/kardianos/osext"
)

// Executable returns the absolute, symlink-free path of the running
// executable. It fails when the image cannot be resolved, for instance
// after the binary has been deleted.
func Executable() (string, error) {
	exe, err := osext.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to determine executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}

	return filepath.Abs(exe)
}
