package types

import "time"

// Layouts of the calendar day and slot label carried by appointments.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// AppointmentStatus is the lifecycle state of an appointment.
//
// Appointments start as pending and are moved once by an admin to
// confirmed or rejected. Rejection is allowed from any state.
type AppointmentStatus string

// Supported appointment states.
const (
	// StatusPending indicates the client has requested the slot and
	// the admin has not acted on it yet.
	StatusPending AppointmentStatus = "pending"

	// StatusConfirmed indicates the admin confirmed the appointment and
	// the calendar event was created.
	StatusConfirmed AppointmentStatus = "confirmed"

	// StatusRejected indicates the admin turned the request down. The
	// slot becomes free again.
	StatusRejected AppointmentStatus = "rejected"
)

// Valid reports whether s is one of the known states.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRejected:
		return true
	default:
		return false
	}
}

// Holds reports whether an appointment in this state keeps its slot busy.
func (s AppointmentStatus) Holds() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Appointment represents a client's booking of a slot on a given day.
type Appointment struct {
	// ID is the unique identifier of the appointment.
	ID int `json:"id" db:"id"`

	// UserID identifies the client who requested the appointment.
	UserID int `json:"user_id" db:"user_id"`

	// Username is the owning client's username. It is filled by
	// queries that join the users table.
	Username string `json:"username,omitempty" db:"username"`

	// Phone is the owning client's WhatsApp destination, filled
	// alongside Username.
	Phone string `json:"-" db:"phone"`

	// Service is the free-form label of the requested treatment.
	Service string `json:"service" db:"service"`

	// Date is the calendar day of the appointment, formatted as YYYY-MM-DD.
	Date string `json:"date" db:"date"`

	// Time is the slot label of the appointment, formatted as HH:MM.
	Time string `json:"time" db:"time"`

	// Note is an optional message left by the client.
	Note string `json:"note" db:"note"`

	// Status is the lifecycle state of the appointment.
	Status AppointmentStatus `json:"status" db:"status"`

	// CalendarEventID references the calendar event created when the
	// appointment was confirmed.
	CalendarEventID string `json:"calendar_event_id,omitempty" db:"calendar_event_id"`

	// CreatedAt is the timestamp when the appointment was requested.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent status change.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SlotStatus classifies a slot for a given date.
type SlotStatus string

// Supported slot classifications.
const (
	SlotFree SlotStatus = "free"
	SlotBusy SlotStatus = "busy"
)

// Slot is a bookable time label paired with its availability.
// Slots are computed per request and never stored.
type Slot struct {
	// Time is the slot label, formatted as HH:MM.
	Time string `json:"time"`

	// Status is free unless a pending or confirmed appointment holds
	// the same date and time.
	Status SlotStatus `json:"status"`
}
