package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/psantana5/relaunch/internal/config"
	"github.com/psantana5/relaunch/pkg/logging"
)

var (
	cfgFile      string
	outputFormat string

	cfg    *config.Config
	logger *logging.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "relaunchd",
	Short: "Restart a program by launching a fresh instance of itself",
	Long: `relaunchd starts a new, independent instance of its own executable and lets
the current instance carry on or exit. It can do this once from the command
line or run as a long-lived host that restarts on HTTP request or SIGHUP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.relaunchd/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

// initConfig reads the config file and RELAUNCHD_* environment variables
func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger = logging.NewLoggerTo(os.Stderr, logging.ParseLevel(cfg.Log.Level), cfg.Log.JSON)
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}
