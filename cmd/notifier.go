/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/salonbook/apiserver/config"
	"github.com/salonbook/apiserver/internal/mq"
	"github.com/salonbook/apiserver/internal/notify"
	"github.com/salonbook/apiserver/types"
	"github.com/spf13/cobra"
)

// notifierCmd represents the notifier command.
var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Send the operator a WhatsApp message for every new appointment request",
	Long: `Subscribes to the appointment event channel and forwards each
appointment.requested event to WHATSAPP_ADMIN_TO. Usage:

	salonbook notifier
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if strings.TrimSpace(cfg.WhatsApp.AdminTo) == "" {
			return errors.New("WHATSAPP_ADMIN_TO is required")
		}
		to, err := notify.WhatsAppAddress(cfg.WhatsApp.AdminTo)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		events, err := mq.NewFromConfig(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if events == nil {
			return errors.New("MQ_BACKEND is not set")
		}
		defer events.Close()

		messenger := notify.NewWhatsApp(cfg.WhatsApp)
		log.Printf("notifier: forwarding %s events from %q", types.EventRequested, events.Channel())

		err = events.SubscribeAppointments(ctx, func(ctx context.Context, ev types.AppointmentEvent) error {
			if ev.Type != types.EventRequested {
				return nil
			}
			if _, err := messenger.Send(ctx, to, notify.RequestMessage(ev)); err != nil {
				return fmt.Errorf("notify operator of appointment %d: %w", ev.AppointmentID, err)
			}
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(notifierCmd)
}
