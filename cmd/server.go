/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salonbook/apiserver/config"
	"github.com/salonbook/apiserver/internal/db"
	"github.com/salonbook/apiserver/internal/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the salonbook backend server",
	Long: `Starts the salonbook backend server. Usage:

	salonbook server
	salonbook server --migrate
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()

		if runMigrations, _ := cmd.Flags().GetBool("migrate"); runMigrations {
			dir, _ := cmd.Flags().GetString("migrations")
			if err := db.MigrateUp(dir, cfg.Database); err != nil {
				fmt.Fprintf(os.Stderr, "migrate up failed: %v\n", err)
				os.Exit(1)
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv, err := server.New(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
			os.Exit(1)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			if err != nil {
				fmt.Fprintf(os.Stderr, "server error: %v\n", err)
				os.Exit(1)
			}
		case <-ctx.Done():
			log.Printf("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
				os.Exit(1)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().Bool("migrate", false, "apply pending migrations before serving")
}
