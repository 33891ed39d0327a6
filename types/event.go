package types

import "time"

// AppointmentEventType names a change in an appointment's lifecycle.
type AppointmentEventType string

// Published event types.
const (
	EventRequested AppointmentEventType = "appointment.requested"
	EventConfirmed AppointmentEventType = "appointment.confirmed"
	EventRejected  AppointmentEventType = "appointment.rejected"
)

// AppointmentEvent is the message published on the events channel whenever
// an appointment is requested, confirmed, or rejected.
type AppointmentEvent struct {
	// Type identifies the lifecycle change.
	Type AppointmentEventType `json:"type"`

	// AppointmentID identifies the appointment that changed.
	AppointmentID int `json:"appointment_id"`

	// Username is the owning client.
	Username string `json:"username"`

	Service string `json:"service"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Note    string `json:"note,omitempty"`

	// Status is the appointment status after the change.
	Status AppointmentStatus `json:"status"`

	// OccurredAt is when the change was committed.
	OccurredAt time.Time `json:"occurred_at"`
}

// NewAppointmentEvent builds an event of the given type from an appointment.
func NewAppointmentEvent(eventType AppointmentEventType, appt Appointment) AppointmentEvent {
	return AppointmentEvent{
		Type:          eventType,
		AppointmentID: appt.ID,
		Username:      appt.Username,
		Service:       appt.Service,
		Date:          appt.Date,
		Time:          appt.Time,
		Note:          appt.Note,
		Status:        appt.Status,
		OccurredAt:    time.Now().UTC(),
	}
}
