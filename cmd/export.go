/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/salonbook/apiserver/config"
	"github.com/salonbook/apiserver/internal/db"
	"github.com/salonbook/apiserver/internal/services"
	"github.com/salonbook/apiserver/internal/storage"
	"github.com/salonbook/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// exportCmd represents the export command.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload a CSV snapshot of every appointment to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		objectStore, err := storage.NewFromConfig(cmd.Context(), cfg.Storage)
		if err != nil {
			return err
		}
		if objectStore == nil {
			return errors.New("STORAGE_BACKEND is not set")
		}

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		key, err := services.NewExportService(store.NewAppointmentRepository(dbConn), objectStore).Export(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s/%s\n", objectStore.Bucket(), key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
