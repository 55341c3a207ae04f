package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/middleware"
)

var adminKeyCmd = &cobra.Command{
	Use:   "admin-key <key>",
	Short: "Print the bcrypt hash of an admin key for ADMIN_KEY_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args[0]) < 16 {
			return errors.New("admin key must be at least 16 characters")
		}

		hash, err := middleware.HashAdminKey(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of pdf-reformatter",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pdf-reformatter %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(adminKeyCmd)
	rootCmd.AddCommand(versionCmd)
}
