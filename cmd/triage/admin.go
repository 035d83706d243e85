package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonathan/footwear-triage/internal/config"
)

var hashCost int

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token",
	Short: "Hash an admin token for ADMIN_TOKEN_BCRYPT",
	Long: `Reads the admin token from stdin and prints its bcrypt hash. Set the hash as
ADMIN_TOKEN_BCRYPT so the plain token never sits in the service environment.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		token := strings.TrimSpace(line)
		if token == "" {
			if err != nil {
				return fmt.Errorf("failed to read token: %w", err)
			}
			return fmt.Errorf("token is empty")
		}

		hash, err := config.HashAdminToken(token, hashCost)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
		return err
	},
}

func init() {
	hashTokenCmd.Flags().IntVar(&hashCost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	rootCmd.AddCommand(hashTokenCmd)
}
