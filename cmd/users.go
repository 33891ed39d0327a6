/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/salonbook/apiserver/config"
	"github.com/salonbook/apiserver/internal/db"
	"github.com/salonbook/apiserver/internal/services"
	"github.com/salonbook/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// usersCmd represents the users command.
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage client accounts",
}

var usersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a client account",
	Long: `Create a client account. Usage:

	salonbook users add --username maria --password secret --phone +393331234567
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		phone, _ := cmd.Flags().GetString("phone")

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		user, err := services.NewUserService(store.NewUserRepository(dbConn)).
			AddClient(cmd.Context(), username, password, phone)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created client %q with id %d\n", user.Username, user.ID)
		return nil
	},
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		users, err := services.NewUserService(store.NewUserRepository(dbConn)).ListClients(cmd.Context())
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, u.Phone)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersAddCmd)
	usersCmd.AddCommand(usersListCmd)

	usersAddCmd.Flags().String("username", "", "client username")
	usersAddCmd.Flags().String("password", "", "client password")
	usersAddCmd.Flags().String("phone", "", "WhatsApp number in E.164 form")
	_ = usersAddCmd.MarkFlagRequired("username")
	_ = usersAddCmd.MarkFlagRequired("password")
}
