package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/relaunch/pkg/client"
	"github.com/psantana5/relaunch/pkg/tlsutil"
)

var (
	remoteURL     string
	remoteToken   string
	remoteCA      string
	remoteCert    string
	remoteKey     string
	remoteReason  string
	remoteLimit   int
	remoteTimeout time.Duration
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Talk to a running relaunchd",
	Long: `Commands that call the HTTP API of a relaunchd started with "serve".
The token can also be given as RELAUNCHD_TOKEN.`,
}

var remoteHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the health of the running instance",
	Args:  cobra.NoArgs,
	RunE:  runRemoteHealth,
}

var remoteRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Ask the running instance to relaunch itself",
	Args:  cobra.NoArgs,
	RunE:  runRemoteRestart,
}

var remoteFailuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List recent failed restart attempts",
	Args:  cobra.NoArgs,
	RunE:  runRemoteFailures,
}

func init() {
	rootCmd.AddCommand(remoteCmd)
	remoteCmd.AddCommand(remoteHealthCmd)
	remoteCmd.AddCommand(remoteRestartCmd)
	remoteCmd.AddCommand(remoteFailuresCmd)

	remoteCmd.PersistentFlags().StringVar(&remoteURL, "url", "", "relaunchd URL (default derived from server.addr)")
	remoteCmd.PersistentFlags().StringVar(&remoteToken, "token", "", "restart token")
	remoteCmd.PersistentFlags().StringVar(&remoteCA, "ca", "", "CA certificate to verify the server")
	remoteCmd.PersistentFlags().StringVar(&remoteCert, "cert", "", "client certificate for mutual TLS")
	remoteCmd.PersistentFlags().StringVar(&remoteKey, "key", "", "client key for mutual TLS")
	remoteCmd.PersistentFlags().DurationVar(&remoteTimeout, "timeout", 30*time.Second, "request timeout")

	remoteRestartCmd.Flags().StringVar(&remoteReason, "reason", "remote", "reason recorded with the attempt")
	remoteFailuresCmd.Flags().IntVar(&remoteLimit, "limit", 0, "maximum number of failures to list (0 for all)")
}

// newRemoteClient builds a client from flags, RELAUNCHD_TOKEN and config
func newRemoteClient() (*client.Client, error) {
	url := remoteURL
	if url == "" {
		scheme := "http"
		if cfg.Server.TLSEnabled() {
			scheme = "https"
		}
		addr := cfg.Server.Addr
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
		url = scheme + "://" + addr
	}

	token := remoteToken
	if token == "" {
		v := viper.New()
		v.SetEnvPrefix("RELAUNCHD")
		_ = v.BindEnv("token")
		token = v.GetString("token")
	}

	opts := []client.Option{client.WithToken(token), client.WithTimeout(remoteTimeout)}
	if strings.HasPrefix(url, "https://") {
		tlsCfg, err := tlsutil.ClientConfig(remoteCert, remoteKey, remoteCA)
		if err != nil {
			return nil, err
		}
		opts = append(opts, client.WithTLSConfig(tlsCfg))
	}
	return client.NewClient(url, opts...), nil
}

func printJSON(v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

func runRemoteHealth(cmd *cobra.Command, args []string) error {
	c, err := newRemoteClient()
	if err != nil {
		return err
	}
	h, err := c.Health(context.Background())
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(h)
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Status", "PID", "Version", "Uptime", "Restarting")
	table.Append(h.Status, strconv.Itoa(h.PID), h.Version, h.Uptime, strconv.FormatBool(h.Restarting))
	table.Render()
	return nil
}

func runRemoteRestart(cmd *cobra.Command, args []string) error {
	c, err := newRemoteClient()
	if err != nil {
		return err
	}
	resp, restartErr := c.Restart(context.Background(), remoteReason)
	if resp != nil && resp.Result != nil {
		if err := printResult(resp.Result); err != nil {
			return err
		}
	}
	return restartErr
}

func runRemoteFailures(cmd *cobra.Command, args []string) error {
	c, err := newRemoteClient()
	if err != nil {
		return err
	}
	resp, err := c.Failures(context.Background(), remoteLimit)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(resp)
	}
	if len(resp.Failures) == 0 {
		fmt.Println("No failed restarts")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "At", "Outcome", "Path", "Error")
	for _, f := range resp.Failures {
		table.Append(f.ID, f.At.Format(time.RFC3339), f.Outcome, f.Path, f.Error)
	}
	table.Render()
	fmt.Printf("\nTotal failures held: %d\n", resp.Total)
	return nil
}
