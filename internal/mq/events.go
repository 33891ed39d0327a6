package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/salonbook/apiserver/types"
)

const (
	attrEventType     = "event_type"
	attrAppointmentID = "appointment_id"
)

// PublishAppointment encodes the event as JSON and publishes it with its
// type and appointment id as attributes.
func (m *MQ) PublishAppointment(ctx context.Context, event types.AppointmentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	id, err := m.Publish(ctx, data, map[string]string{
		attrEventType:     string(event.Type),
		attrAppointmentID: strconv.Itoa(event.AppointmentID),
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	log.Printf("mq: published %s for appointment %d (message %s)", event.Type, event.AppointmentID, id)
	return nil
}

// AppointmentHandler processes a decoded appointment event.
type AppointmentHandler func(ctx context.Context, event types.AppointmentEvent) error

// SubscribeAppointments consumes appointment events. Messages that cannot be
// decoded are logged and acknowledged so they are not redelivered forever.
func (m *MQ) SubscribeAppointments(ctx context.Context, handler AppointmentHandler) error {
	return m.Subscribe(ctx, func(ctx context.Context, msg Message) error {
		var event types.AppointmentEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("mq: dropping undecodable message %s: %v", msg.ID, err)
			return nil
		}
		return handler(ctx, event)
	})
}
