package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"

	"github.com/psantana5/relaunch/pkg/relaunch"
)

var exeCmd = &cobra.Command{
	Use:   "exe",
	Short: "Show the executable a restart would launch",
	Long: `Resolves the absolute path of the running executable the same way a restart
does and cross-checks it against the operating system's process table.`,
	Args: cobra.NoArgs,
	RunE: runExe,
}

func init() {
	rootCmd.AddCommand(exeCmd)
}

type exeInfo struct {
	PID      int    `json:"pid"`
	Argv0    string `json:"argv0"`
	Resolved string `json:"resolved"`
	Process  string `json:"process,omitempty"`
	Match    bool   `json:"match"`
	Error    string `json:"error,omitempty"`
}

func runExe(cmd *cobra.Command, args []string) error {
	info := exeInfo{PID: os.Getpid(), Argv0: os.Args[0]}

	resolved, err := relaunch.Executable()
	if err != nil {
		info.Error = err.Error()
	}
	info.Resolved = resolved

	if p, perr := process.NewProcess(int32(info.PID)); perr == nil {
		if exe, perr := p.Exe(); perr == nil {
			if target, rerr := filepath.EvalSymlinks(exe); rerr == nil {
				exe = target
			}
			info.Process = exe
		}
	}
	info.Match = info.Resolved != "" && info.Resolved == info.Process

	if IsJSONOutput() {
		output, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
	} else {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Field", "Value")
		table.Append("PID", strconv.Itoa(info.PID))
		table.Append("argv[0]", info.Argv0)
		table.Append("Resolved", info.Resolved)
		table.Append("Process table", info.Process)
		table.Append("Match", strconv.FormatBool(info.Match))
		table.Render()
	}

	return err
}
