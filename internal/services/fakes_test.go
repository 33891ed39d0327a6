package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/salonbook/apiserver/internal/notify"
	"github.com/salonbook/apiserver/internal/store"
	"github.com/salonbook/apiserver/types"
)

type memUsers struct {
	mu    sync.Mutex
	users []types.User
}

func (m *memUsers) byID(id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) List(_ context.Context) ([]types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.User, len(m.users))
	for i := range m.users {
		out[len(m.users)-1-i] = m.users[i]
	}
	return out, nil
}

func (m *memUsers) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = len(m.users) + 1
	m.users = append(m.users, user)
	return user, nil
}

func (m *memUsers) CreateIfMissing(ctx context.Context, user types.User) (bool, error) {
	_, err := m.Create(ctx, user)
	if errors.Is(err, store.ErrConflict) {
		return false, nil
	}
	return err == nil, err
}

type memAppointments struct {
	mu    sync.Mutex
	users *memUsers
	appts map[int]types.Appointment
	next  int
	err   error
}

func newMemAppointments(users *memUsers) *memAppointments {
	return &memAppointments{users: users, appts: map[int]types.Appointment{}}
}

func (m *memAppointments) withUser(a types.Appointment) types.Appointment {
	if u, err := m.users.byID(a.UserID); err == nil {
		a.Username = u.Username
		a.Phone = u.Phone
	}
	return a
}

func (m *memAppointments) Get(_ context.Context, id int) (types.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return types.Appointment{}, store.ErrNotFound
	}
	return m.withUser(a), nil
}

func (m *memAppointments) Create(_ context.Context, appt types.Appointment) (types.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return types.Appointment{}, m.err
	}
	for _, a := range m.appts {
		if a.Date == appt.Date && a.Time == appt.Time && a.Status.Holds() {
			return types.Appointment{}, store.ErrConflict
		}
	}
	m.next++
	appt.ID = m.next
	appt.Status = types.StatusPending
	m.appts[appt.ID] = appt
	return appt, nil
}

func (m *memAppointments) BusyTimes(_ context.Context, date string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, a := range m.appts {
		if a.Date == date && a.Status.Holds() {
			out = append(out, a.Time)
		}
	}
	return out, nil
}

func (m *memAppointments) sorted(filter func(types.Appointment) bool) []types.Appointment {
	out := []types.Appointment{}
	for _, a := range m.appts {
		if filter(a) {
			out = append(out, m.withUser(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out
}

func (m *memAppointments) ListByUser(_ context.Context, userID int) ([]types.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(a types.Appointment) bool { return a.UserID == userID }), nil
}

func (m *memAppointments) ListAll(_ context.Context) ([]types.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.sorted(func(types.Appointment) bool { return true }), nil
}

func (m *memAppointments) Confirm(_ context.Context, id int, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Status != types.StatusPending {
		return store.ErrNotFound
	}
	a.Status = types.StatusConfirmed
	a.CalendarEventID = eventID
	m.appts[id] = a
	return nil
}

func (m *memAppointments) Reject(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return store.ErrNotFound
	}
	a.Status = types.StatusRejected
	m.appts[id] = a
	return nil
}

func (m *memAppointments) status(id int) types.AppointmentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appts[id].Status
}

type fakeDispatcher struct {
	calls []notify.Confirmation
	err   error
}

func (f *fakeDispatcher) Confirm(_ context.Context, c notify.Confirmation) (string, error) {
	f.calls = append(f.calls, c)
	if f.err != nil {
		return "", f.err
	}
	return "evt-42", nil
}

type recordingPublisher struct {
	events []types.AppointmentEvent
	err    error
}

func (r *recordingPublisher) PublishAppointment(_ context.Context, ev types.AppointmentEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

type memObjects struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
		m.types = map[string]string{}
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}
