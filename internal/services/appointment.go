package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/salonbook/apiserver/internal/metrics"
	"github.com/salonbook/apiserver/internal/notify"
	"github.com/salonbook/apiserver/internal/schedule"
	"github.com/salonbook/apiserver/internal/store"
	"github.com/salonbook/apiserver/types"
)

const appointmentDuration = time.Hour

// AppointmentRepository defines persistence operations for appointments.
type AppointmentRepository interface {
	Get(ctx context.Context, id int) (types.Appointment, error)
	Create(ctx context.Context, appt types.Appointment) (types.Appointment, error)
	BusyTimes(ctx context.Context, date string) ([]string, error)
	ListByUser(ctx context.Context, userID int) ([]types.Appointment, error)
	ListAll(ctx context.Context) ([]types.Appointment, error)
	Confirm(ctx context.Context, id int, calendarEventID string) error
	Reject(ctx context.Context, id int) error
}

// UserLookup resolves client identities.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (types.User, error)
}

// Dispatcher announces a confirmed appointment to the outside world and
// returns the calendar event id.
type Dispatcher interface {
	Confirm(ctx context.Context, c notify.Confirmation) (string, error)
}

// EventPublisher publishes appointment lifecycle events.
type EventPublisher interface {
	PublishAppointment(ctx context.Context, event types.AppointmentEvent) error
}

// AppointmentService encapsulates slot availability and the appointment
// lifecycle.
type AppointmentService struct {
	repo       AppointmentRepository
	users      UserLookup
	dispatcher Dispatcher
	events     EventPublisher
	hours      schedule.Hours
	location   *time.Location
}

// NewAppointmentService constructs the service. events may be nil, in which
// case nothing is published.
func NewAppointmentService(
	repo AppointmentRepository,
	users UserLookup,
	dispatcher Dispatcher,
	events EventPublisher,
	location *time.Location,
) *AppointmentService {
	if location == nil {
		location = time.UTC
	}
	return &AppointmentService{
		repo:       repo,
		users:      users,
		dispatcher: dispatcher,
		events:     events,
		hours:      schedule.DefaultHours,
		location:   location,
	}
}

// RequestInput is the client's appointment request.
type RequestInput struct {
	Service    string
	Date       string
	Time       string
	Note       string
	ClientName string
}

// Slots returns every slot of the date's weekday with its availability.
func (s *AppointmentService) Slots(ctx context.Context, date string) ([]types.Slot, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, validationf("missing date")
	}
	day, err := schedule.ParseDate(date)
	if err != nil {
		return nil, validationf("invalid date %q, expected YYYY-MM-DD", date)
	}

	if len(s.hours.Labels(day.Weekday())) == 0 {
		return []types.Slot{}, nil
	}

	busy, err := s.repo.BusyTimes(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load busy times: %w", err)
	}
	return s.hours.Slots(day.Weekday(), busy), nil
}

// Request records a pending appointment for the named client.
func (s *AppointmentService) Request(ctx context.Context, in RequestInput) (types.Appointment, error) {
	in.Service = strings.TrimSpace(in.Service)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.ClientName = strings.TrimSpace(in.ClientName)
	if in.Service == "" || in.Date == "" || in.Time == "" || in.ClientName == "" {
		return types.Appointment{}, validationf("missing data")
	}
	if _, err := schedule.ParseDate(in.Date); err != nil {
		return types.Appointment{}, validationf("invalid date %q, expected YYYY-MM-DD", in.Date)
	}
	if err := schedule.ParseTime(in.Time); err != nil {
		return types.Appointment{}, validationf("invalid time %q, expected HH:MM", in.Time)
	}

	user, err := s.users.GetByUsername(ctx, in.ClientName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Appointment{}, &NotFoundError{Msg: "user not found", Err: err}
		}
		return types.Appointment{}, fmt.Errorf("load user: %w", err)
	}

	appt, err := s.repo.Create(ctx, types.Appointment{
		UserID:  user.ID,
		Service: in.Service,
		Date:    in.Date,
		Time:    in.Time,
		Note:    strings.TrimSpace(in.Note),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.Appointment{}, &ConflictError{Msg: "slot already taken", Err: err}
		}
		return types.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}
	appt.Username = user.Username
	appt.Phone = user.Phone

	metrics.AppointmentEvent("requested")
	s.publish(ctx, types.EventRequested, appt)
	return appt, nil
}

// Confirm dispatches the confirmation and, only when that succeeds, marks
// the appointment confirmed. It returns the calendar event id.
func (s *AppointmentService) Confirm(ctx context.Context, id int) (string, error) {
	appt, err := s.get(ctx, id)
	if err != nil {
		return "", err
	}
	if appt.Status != types.StatusPending {
		return "", &ConflictError{Msg: fmt.Sprintf("appointment is %s", appt.Status)}
	}

	start, end, err := s.window(appt)
	if err != nil {
		return "", err
	}

	eventID, err := s.dispatcher.Confirm(ctx, notify.Confirmation{
		Appointment: appt,
		Start:       start,
		End:         end,
		TimeZone:    s.location.String(),
	})
	if err != nil {
		integration := "notification"
		var nerr *notify.Error
		if errors.As(err, &nerr) {
			integration = nerr.Integration
		}
		return "", &IntegrationError{Integration: integration, Err: err}
	}

	if err := s.repo.Confirm(ctx, id, eventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", &ConflictError{Msg: "appointment is no longer pending", Err: err}
		}
		return "", fmt.Errorf("confirm appointment: %w", err)
	}
	appt.Status = types.StatusConfirmed
	appt.CalendarEventID = eventID

	metrics.AppointmentEvent("confirmed")
	s.publish(ctx, types.EventConfirmed, appt)
	return eventID, nil
}

// Reject marks the appointment rejected whatever its current status.
func (s *AppointmentService) Reject(ctx context.Context, id int) error {
	if err := s.repo.Reject(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &NotFoundError{Msg: "appointment not found", Err: err}
		}
		return fmt.Errorf("reject appointment: %w", err)
	}

	metrics.AppointmentEvent("rejected")
	if appt, err := s.repo.Get(ctx, id); err == nil {
		s.publish(ctx, types.EventRejected, appt)
	} else {
		log.Printf("appointments: reload %d after reject: %v", id, err)
	}
	return nil
}

// ListByUser returns the named client's appointments ordered by date and time.
func (s *AppointmentService) ListByUser(ctx context.Context, username string) ([]types.Appointment, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, validationf("missing username")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Msg: "user not found", Err: err}
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return s.repo.ListByUser(ctx, user.ID)
}

// ListAll returns every appointment with its author, ordered by date and time.
func (s *AppointmentService) ListAll(ctx context.Context) ([]types.Appointment, error) {
	return s.repo.ListAll(ctx)
}

func (s *AppointmentService) get(ctx context.Context, id int) (types.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Appointment{}, &NotFoundError{Msg: "appointment not found", Err: err}
		}
		return types.Appointment{}, fmt.Errorf("load appointment: %w", err)
	}
	return appt, nil
}

// window returns the one-hour span starting at the appointment's date and
// time in the salon's timezone.
func (s *AppointmentService) window(appt types.Appointment) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(types.DateLayout+" "+types.TimeLayout, appt.Date+" "+appt.Time, s.location)
	if err != nil {
		return time.Time{}, time.Time{}, validationf("appointment %d has an invalid date or time", appt.ID)
	}
	return start, start.Add(appointmentDuration), nil
}

func (s *AppointmentService) publish(ctx context.Context, eventType types.AppointmentEventType, appt types.Appointment) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishAppointment(ctx, types.NewAppointmentEvent(eventType, appt)); err != nil {
		metrics.PublishFailed()
		log.Printf("appointments: publish %s for %d: %v", eventType, appt.ID, err)
	}
}
