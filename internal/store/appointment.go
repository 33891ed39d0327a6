package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/salonbook/apiserver/types"
)

// slotHolders lists the states whose appointments keep their slot busy.
func slotHolders() pq.StringArray {
	var held pq.StringArray
	for _, s := range []types.AppointmentStatus{types.StatusPending, types.StatusConfirmed, types.StatusRejected} {
		if s.Holds() {
			held = append(held, string(s))
		}
	}
	return held
}

// AppointmentRepository handles persistence for appointments.
type AppointmentRepository struct {
	db *sql.DB
}

func NewAppointmentRepository(db *sql.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = `
	a.id, a.user_id, u.username, u.phone, a.service, a.appointment_date, a.slot_time,
	a.note, a.status, a.calendar_event_id, a.created_at, a.updated_at`

func scanAppointment(row interface{ Scan(...any) error }) (types.Appointment, error) {
	var (
		appt types.Appointment
		day  time.Time
	)
	err := row.Scan(
		&appt.ID,
		&appt.UserID,
		&appt.Username,
		&appt.Phone,
		&appt.Service,
		&day,
		&appt.Time,
		&appt.Note,
		&appt.Status,
		&appt.CalendarEventID,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return types.Appointment{}, err
	}
	if !appt.Status.Valid() {
		return types.Appointment{}, fmt.Errorf("appointment %d has unknown status %q", appt.ID, appt.Status)
	}
	appt.Date = day.Format(types.DateLayout)
	return appt, nil
}

// Get returns the appointment joined with its owning user.
func (r *AppointmentRepository) Get(ctx context.Context, id int) (types.Appointment, error) {
	const query = `
		SELECT` + appointmentColumns + `
		FROM appointments a
		JOIN users u ON a.user_id = u.id
		WHERE a.id = $1`
	appt, err := scanAppointment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Appointment{}, ErrNotFound
		}
		return types.Appointment{}, err
	}
	return appt, nil
}

// Create inserts a pending appointment unless another pending or confirmed
// appointment already holds the same date and time, in which case it
// returns ErrConflict.
func (r *AppointmentRepository) Create(ctx context.Context, appt types.Appointment) (types.Appointment, error) {
	now := time.Now()
	appt.Status = types.StatusPending
	appt.CreatedAt = now
	appt.UpdatedAt = now

	const query = `
		INSERT INTO appointments (user_id, service, appointment_date, slot_time, note, status, created_at, updated_at)
		SELECT $1::integer, $2::text, $3::date, $4::text, $5::text, $6::text, $7::timestamptz, $7::timestamptz
		WHERE NOT EXISTS (
			SELECT 1 FROM appointments
			WHERE appointment_date = $3::date
			  AND slot_time = $4
			  AND status = ANY($8::text[])
		)
		RETURNING id`
	err := r.db.QueryRowContext(
		ctx,
		query,
		appt.UserID,
		appt.Service,
		appt.Date,
		appt.Time,
		appt.Note,
		appt.Status,
		now,
		slotHolders(),
	).Scan(&appt.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return types.Appointment{}, ErrConflict
		}
		return types.Appointment{}, err
	}
	return appt, nil
}

// BusyTimes returns the slot labels held on the given day by pending or
// confirmed appointments.
func (r *AppointmentRepository) BusyTimes(ctx context.Context, date string) ([]string, error) {
	const query = `
		SELECT slot_time
		FROM appointments
		WHERE appointment_date = $1::date
		  AND status = ANY($2::text[])`
	rows, err := r.db.QueryContext(ctx, query, date, slotHolders())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

// ListByUser returns the user's appointments ordered by date and time.
func (r *AppointmentRepository) ListByUser(ctx context.Context, userID int) ([]types.Appointment, error) {
	const query = `
		SELECT` + appointmentColumns + `
		FROM appointments a
		JOIN users u ON a.user_id = u.id
		WHERE a.user_id = $1
		ORDER BY a.appointment_date ASC, a.slot_time ASC`
	return r.list(ctx, query, userID)
}

// ListAll returns every appointment with its author, ordered by date and time.
func (r *AppointmentRepository) ListAll(ctx context.Context) ([]types.Appointment, error) {
	const query = `
		SELECT` + appointmentColumns + `
		FROM appointments a
		JOIN users u ON a.user_id = u.id
		ORDER BY a.appointment_date ASC, a.slot_time ASC, a.id ASC`
	return r.list(ctx, query)
}

func (r *AppointmentRepository) list(ctx context.Context, query string, args ...any) ([]types.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appts := []types.Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

// Confirm moves a pending appointment to confirmed and records the calendar
// event. It returns ErrNotFound when no pending appointment has the id.
func (r *AppointmentRepository) Confirm(ctx context.Context, id int, calendarEventID string) error {
	const query = `
		UPDATE appointments
		SET status = 'confirmed',
			calendar_event_id = $1,
			updated_at = $2
		WHERE id = $3 AND status = 'pending'`
	return r.exec(ctx, query, calendarEventID, time.Now(), id)
}

// Reject sets the appointment to rejected whatever its current status.
func (r *AppointmentRepository) Reject(ctx context.Context, id int) error {
	const query = `
		UPDATE appointments
		SET status = 'rejected',
			updated_at = $1
		WHERE id = $2`
	return r.exec(ctx, query, time.Now(), id)
}

func (r *AppointmentRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
