package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psantana5/relaunch/pkg/tlsutil"
)

var (
	certFile  string
	keyFile   string
	certCN    string
	certHosts []string
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "TLS certificate helpers",
}

var certGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a self-signed certificate for development",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := tlsutil.GenerateSelfSignedCert(certFile, keyFile, certCN, certHosts...); err != nil {
			return err
		}
		fmt.Printf("Wrote %s and %s\n", certFile, keyFile)
		fmt.Println("Set server.tls_cert and server.tls_key to serve HTTPS.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(certCmd)
	certCmd.AddCommand(certGenerateCmd)

	certGenerateCmd.Flags().StringVar(&certFile, "cert", "relaunchd.crt", "certificate output file")
	certGenerateCmd.Flags().StringVar(&keyFile, "key", "relaunchd.key", "private key output file")
	certGenerateCmd.Flags().StringVar(&certCN, "cn", "relaunchd", "certificate common name")
	certGenerateCmd.Flags().StringSliceVar(&certHosts, "host", nil, "extra IP addresses or host names")
}
