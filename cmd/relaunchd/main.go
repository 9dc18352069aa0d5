package main

import (
	"os"

	"github.com/psantana5/relaunch/cmd/relaunchd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
