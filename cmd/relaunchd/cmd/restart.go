package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/psantana5/relaunch/internal/config"
	"github.com/psantana5/relaunch/internal/report"
	"github.com/psantana5/relaunch/internal/restart"
	"github.com/psantana5/relaunch/pkg/relaunch"
)

var (
	restartConfirm time.Duration
	restartMetrics bool
	restartReason  string
)

var restartCmd = &cobra.Command{
	Use:   "restart [-- child args...]",
	Short: "Launch a fresh instance of this executable once",
	Long: `Launches a new, detached instance of the relaunchd executable and returns
without waiting for it. Arguments after -- are passed to the new instance.

Without child arguments an "inherit" args policy would make the new instance
run restart again, so this command falls back to launching without arguments.`,
	RunE: runRestart,
}

func init() {
	rootCmd.AddCommand(restartCmd)

	restartCmd.Flags().DurationVar(&restartConfirm, "confirm", 0, "wait this long and check the new instance is still running")
	restartCmd.Flags().BoolVar(&restartMetrics, "metrics", false, "print attempt metrics in Prometheus text format")
	restartCmd.Flags().StringVar(&restartReason, "reason", "cli", "reason recorded with the attempt")
}

func runRestart(cmd *cobra.Command, args []string) error {
	opts := cfg.RelaunchOptions()
	switch {
	case len(args) > 0:
		opts = append(opts, relaunch.WithArgs(args...))
	case cfg.Relaunch.Args == config.ArgsInherit:
		logger.Debug("Ignoring inherited args for one-shot restart")
		opts = append(opts, relaunch.WithArgs())
	}

	reg := prometheus.NewRegistry()
	recorder, err := report.NewRecorder(reg, logger)
	if err != nil {
		return err
	}
	opts = append(opts, relaunch.WithObserver(recorder), relaunch.WithLogger(logger))

	ctrl, err := restart.New(restart.Config{
		Relauncher:    relaunch.New(opts...),
		Recorder:      recorder,
		Logger:        logger,
		ConfirmWithin: restartConfirm,
	})
	if err != nil {
		return err
	}

	res, restartErr := ctrl.Restart(context.Background(), restartReason)
	if res != nil {
		if err := printResult(res); err != nil {
			return err
		}
	}
	if restartMetrics {
		fmt.Println()
		if err := report.WriteText(os.Stdout, reg); err != nil {
			return err
		}
	}
	return restartErr
}

func printResult(res *report.Result) error {
	if IsJSONOutput() {
		output, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	confirmed := "-"
	if res.Confirmed != nil {
		confirmed = strconv.FormatBool(*res.Confirmed)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Outcome", "PID", "Path", "Took", "Confirmed")
	table.Append(
		res.ID,
		res.Outcome,
		strconv.Itoa(res.PID),
		res.Path,
		res.Duration.Round(time.Microsecond).String(),
		confirmed,
	)
	table.Render()

	if res.Error != "" {
		fmt.Printf("\nError: %s\n", res.Error)
	}
	return nil
}
