// Package notify holds the outbound integrations triggered when an
// appointment is confirmed: a Google Calendar event and a WhatsApp message.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/salonbook/apiserver/internal/metrics"
	"github.com/salonbook/apiserver/types"
)

// Integration names reported in errors and metrics.
const (
	IntegrationCalendar = "calendar"
	IntegrationWhatsApp = "whatsapp"
)

// Error reports a failure of an external integration.
type Error struct {
	Integration string
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Integration, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Event is a calendar entry to create.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
}

// CalendarClient creates calendar events.
type CalendarClient interface {
	CreateEvent(ctx context.Context, event Event) (string, error)
}

// Messenger sends a text message to a destination.
type Messenger interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// Confirmation carries what the dispatcher needs to announce a confirmed
// appointment.
type Confirmation struct {
	Appointment types.Appointment
	Start       time.Time
	End         time.Time
	TimeZone    string
}

// Dispatcher fans a confirmation out to the calendar and, when the client
// has a phone number, to WhatsApp.
type Dispatcher struct {
	calendar  CalendarClient
	messenger Messenger
}

func NewDispatcher(calendar CalendarClient, messenger Messenger) *Dispatcher {
	if messenger == nil {
		messenger = NoopMessenger{}
	}
	return &Dispatcher{calendar: calendar, messenger: messenger}
}

// Confirm creates the calendar event and sends the client message. It
// returns the calendar event id. Only a calendar failure is returned, as an
// *Error; once the event exists a failed client message is logged and
// counted but does not fail the confirmation.
func (d *Dispatcher) Confirm(ctx context.Context, c Confirmation) (string, error) {
	appt := c.Appointment

	if d.calendar == nil {
		return "", d.fail(IntegrationCalendar, ErrCalendarNotConfigured)
	}

	timer := metrics.DispatchTimer(IntegrationCalendar)
	eventID, err := d.calendar.CreateEvent(ctx, Event{
		Summary:     fmt.Sprintf("Appointment: %s - %s", appt.Service, appt.Username),
		Description: appt.Note,
		Start:       c.Start,
		End:         c.End,
		TimeZone:    c.TimeZone,
	})
	timer.ObserveDuration()
	if err != nil {
		return "", d.fail(IntegrationCalendar, err)
	}

	if appt.Phone == "" {
		return eventID, nil
	}

	timer = metrics.DispatchTimer(IntegrationWhatsApp)
	_, err = d.messenger.Send(ctx, appt.Phone, ConfirmationMessage(appt))
	timer.ObserveDuration()
	if err != nil {
		_ = d.fail(IntegrationWhatsApp, err)
	}
	return eventID, nil
}

func (d *Dispatcher) fail(integration string, err error) error {
	metrics.DispatchFailed(integration)
	log.Printf("notify: %s failed: %v", integration, err)
	return &Error{Integration: integration, Err: err}
}

// ConfirmationMessage is the text sent to a client whose appointment was confirmed.
func ConfirmationMessage(appt types.Appointment) string {
	return fmt.Sprintf(
		"Hi %s, your %s appointment on %s at %s is confirmed.",
		appt.Username, appt.Service, appt.Date, appt.Time,
	)
}

// RequestMessage is the text sent to the operator when a client asks for a slot.
func RequestMessage(ev types.AppointmentEvent) string {
	msg := fmt.Sprintf(
		"New appointment request #%d from %s: %s on %s at %s.",
		ev.AppointmentID, ev.Username, ev.Service, ev.Date, ev.Time,
	)
	if ev.Note != "" {
		msg += " Note: " + ev.Note
	}
	return msg
}

// ErrCalendarNotConfigured is returned when no Google credentials were provided.
var ErrCalendarNotConfigured = errors.New("google calendar is not configured")
