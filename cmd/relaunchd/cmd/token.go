package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psantana5/relaunch/pkg/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the restart endpoint token",
}

var tokenHashCmd = &cobra.Command{
	Use:   "hash <token>",
	Short: "Print the bcrypt hash to use as server.restart_token_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashToken(args[0])
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

var tokenGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a random token and its hash",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := auth.GenerateToken()
		if err != nil {
			return err
		}
		hash, err := auth.HashToken(token)
		if err != nil {
			return err
		}
		fmt.Printf("token: %s\nhash:  %s\n", token, hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenHashCmd)
	tokenCmd.AddCommand(tokenGenerateCmd)
}
