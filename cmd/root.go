/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/salonbook/apiserver/internal/db"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "salonbook",
	Short: "Appointment booking backend for a single salon",
	Long: `salonbook serves the booking API, runs database migrations and
manages client accounts, exports and the operator notifier.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("migrations", db.DefaultMigrationsDir, "directory holding the SQL migrations")
}
