package services

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/salonbook/apiserver/internal/notify"
	"github.com/salonbook/apiserver/types"
)

type fixture struct {
	users      *memUsers
	appts      *memAppointments
	dispatcher *fakeDispatcher
	events     *recordingPublisher
	svc        *AppointmentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := &memUsers{users: []types.User{
		{ID: 1, Username: "maria", Role: types.RoleClient, Phone: "+391111111"},
		{ID: 2, Username: "luca", Role: types.RoleClient},
	}}
	appts := newMemAppointments(users)
	dispatcher := &fakeDispatcher{}
	events := &recordingPublisher{}
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return &fixture{
		users:      users,
		appts:      appts,
		dispatcher: dispatcher,
		events:     events,
		svc:        NewAppointmentService(appts, users, dispatcher, events, rome),
	}
}

func (f *fixture) request(t *testing.T, client, date, slot string) types.Appointment {
	t.Helper()
	appt, err := f.svc.Request(context.Background(), RequestInput{
		Service: "haircut", Date: date, Time: slot, ClientName: client,
	})
	if err != nil {
		t.Fatalf("request %s %s: %v", date, slot, err)
	}
	return appt
}

func TestSlotsExamples(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	monday, err := f.svc.Slots(ctx, "2024-06-10")
	if err != nil {
		t.Fatalf("slots monday: %v", err)
	}
	if monday == nil || len(monday) != 0 {
		t.Fatalf("expected empty monday, got %v", monday)
	}

	tuesday, err := f.svc.Slots(ctx, "2024-06-11")
	if err != nil {
		t.Fatalf("slots tuesday: %v", err)
	}
	if len(tuesday) != 17 {
		t.Fatalf("expected 17 slots, got %d", len(tuesday))
	}
	if tuesday[0] != (types.Slot{Time: "08:30", Status: types.SlotFree}) {
		t.Fatalf("unexpected first slot %+v", tuesday[0])
	}
}

func TestSlotsValidation(t *testing.T) {
	f := newFixture(t)
	for _, date := range []string{"", "tomorrow", "2024-13-01"} {
		_, err := f.svc.Slots(context.Background(), date)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%q: expected ValidationError, got %v", date, err)
		}
	}
}

func TestSlotsBusyOnlyForHoldingStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.request(t, "maria", "2024-06-11", "09:00")
	confirmed := f.request(t, "maria", "2024-06-11", "10:00")
	rejected := f.request(t, "luca", "2024-06-11", "11:00")
	f.request(t, "luca", "2024-06-12", "12:00")

	if _, err := f.svc.Confirm(ctx, confirmed.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := f.svc.Reject(ctx, rejected.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	slots, err := f.svc.Slots(ctx, "2024-06-11")
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	busy := map[string]bool{}
	for _, s := range slots {
		if s.Status == types.SlotBusy {
			busy[s.Time] = true
		}
	}
	if !busy[pending.Time] || !busy[confirmed.Time] {
		t.Fatalf("pending and confirmed slots must be busy: %v", busy)
	}
	if busy[rejected.Time] {
		t.Fatal("rejected slot must be free")
	}
	if busy["12:00"] {
		t.Fatal("appointment on another date must not mark the slot busy")
	}
	if len(busy) != 2 {
		t.Fatalf("unexpected busy slots %v", busy)
	}
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   RequestInput
	}{
		{"empty service", RequestInput{Date: "2024-06-11", Time: "09:00", ClientName: "maria"}},
		{"empty date", RequestInput{Service: "cut", Time: "09:00", ClientName: "maria"}},
		{"empty time", RequestInput{Service: "cut", Date: "2024-06-11", ClientName: "maria"}},
		{"empty client", RequestInput{Service: "cut", Date: "2024-06-11", Time: "09:00"}},
		{"blank service", RequestInput{Service: "  ", Date: "2024-06-11", Time: "09:00", ClientName: "maria"}},
		{"malformed date", RequestInput{Service: "cut", Date: "11-06-2024", Time: "09:00", ClientName: "maria"}},
		{"malformed time", RequestInput{Service: "cut", Date: "2024-06-11", Time: "9am", ClientName: "maria"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Request(context.Background(), tt.in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
	if len(f.events.events) != 0 {
		t.Fatalf("no events expected, got %d", len(f.events.events))
	}
}

func TestRequestUnknownClient(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Request(context.Background(), RequestInput{
		Service: "cut", Date: "2024-06-11", Time: "09:00", ClientName: "ghost",
	})
	var nerr *NotFoundError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestRequestCreatesPending(t *testing.T) {
	f := newFixture(t)
	appt := f.request(t, "maria", "2024-06-11", "09:00")

	if appt.ID == 0 || appt.Status != types.StatusPending {
		t.Fatalf("unexpected appointment %+v", appt)
	}
	if len(f.events.events) != 1 {
		t.Fatalf("expected one event, got %d", len(f.events.events))
	}
	ev := f.events.events[0]
	if ev.Type != types.EventRequested || ev.AppointmentID != appt.ID || ev.Username != "maria" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestRequestTakenSlot(t *testing.T) {
	f := newFixture(t)
	first := f.request(t, "maria", "2024-06-11", "09:00")

	_, err := f.svc.Request(context.Background(), RequestInput{
		Service: "color", Date: "2024-06-11", Time: "09:00", ClientName: "luca",
	})
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	if err := f.svc.Reject(context.Background(), first.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	f.request(t, "luca", "2024-06-11", "09:00")
}

func TestRequestPublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")

	appt := f.request(t, "maria", "2024-06-11", "09:00")
	if appt.ID == 0 {
		t.Fatal("expected appointment to be created")
	}
}

func TestConfirmNotFound(t *testing.T) {
	f := newFixture(t)
	existing := f.request(t, "maria", "2024-06-11", "09:00")

	_, err := f.svc.Confirm(context.Background(), 999)
	var nerr *NotFoundError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if len(f.dispatcher.calls) != 0 {
		t.Fatal("dispatcher must not be called")
	}
	if f.appts.status(existing.ID) != types.StatusPending {
		t.Fatal("unrelated appointment changed")
	}
}

func TestConfirmSuccess(t *testing.T) {
	f := newFixture(t)
	appt := f.request(t, "maria", "2024-06-11", "09:00")

	eventID, err := f.svc.Confirm(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if eventID != "evt-42" {
		t.Fatalf("unexpected event id %q", eventID)
	}
	if f.appts.status(appt.ID) != types.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", f.appts.status(appt.ID))
	}

	call := f.dispatcher.calls[0]
	if call.TimeZone != "Europe/Rome" {
		t.Fatalf("unexpected timezone %q", call.TimeZone)
	}
	if got := call.Start.Format(time.RFC3339); got != "2024-06-11T09:00:00+02:00" {
		t.Fatalf("unexpected start %s", got)
	}
	if call.End.Sub(call.Start) != time.Hour {
		t.Fatalf("expected one hour window, got %v", call.End.Sub(call.Start))
	}
	if call.Appointment.Username != "maria" || call.Appointment.Phone != "+391111111" {
		t.Fatalf("dispatch must receive the joined user, got %+v", call.Appointment)
	}

	last := f.events.events[len(f.events.events)-1]
	if last.Type != types.EventConfirmed || last.Status != types.StatusConfirmed {
		t.Fatalf("unexpected event %+v", last)
	}
}

func TestConfirmDispatchFailureLeavesPending(t *testing.T) {
	f := newFixture(t)
	appt := f.request(t, "maria", "2024-06-11", "09:00")
	f.dispatcher.err = &notify.Error{Integration: notify.IntegrationCalendar, Err: errors.New("token expired")}

	_, err := f.svc.Confirm(context.Background(), appt.ID)
	var ierr *IntegrationError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected IntegrationError, got %v", err)
	}
	if ierr.Integration != notify.IntegrationCalendar {
		t.Fatalf("unexpected integration %q", ierr.Integration)
	}
	if f.appts.status(appt.ID) != types.StatusPending {
		t.Fatalf("expected pending, got %s", f.appts.status(appt.ID))
	}
	for _, ev := range f.events.events {
		if ev.Type == types.EventConfirmed {
			t.Fatal("confirmed event must not be published")
		}
	}
}

type countingCalendar struct{ created int }

func (c *countingCalendar) CreateEvent(_ context.Context, _ notify.Event) (string, error) {
	c.created++
	return "evt-real", nil
}

type failingMessenger struct{}

func (failingMessenger) Send(_ context.Context, _, _ string) (string, error) {
	return "", errors.New("twilio down")
}

func TestConfirmMessageFailureStillConfirms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cal := &countingCalendar{}
	f.svc.dispatcher = notify.NewDispatcher(cal, failingMessenger{})
	appt := f.request(t, "maria", "2024-06-11", "09:00")

	eventID, err := f.svc.Confirm(ctx, appt.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if eventID != "evt-real" {
		t.Fatalf("unexpected event id %q", eventID)
	}
	if f.appts.status(appt.ID) != types.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", f.appts.status(appt.ID))
	}

	_, err = f.svc.Confirm(ctx, appt.ID)
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError on retry, got %v", err)
	}
	if cal.created != 1 {
		t.Fatalf("expected a single calendar event, got %d", cal.created)
	}
}

func TestConfirmTerminalStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	confirmed := f.request(t, "maria", "2024-06-11", "09:00")
	rejected := f.request(t, "maria", "2024-06-11", "09:30")
	if _, err := f.svc.Confirm(ctx, confirmed.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := f.svc.Reject(ctx, rejected.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	for _, id := range []int{confirmed.ID, rejected.ID} {
		_, err := f.svc.Confirm(ctx, id)
		var cerr *ConflictError
		if !errors.As(err, &cerr) {
			t.Fatalf("appointment %d: expected ConflictError, got %v", id, err)
		}
	}
	if len(f.dispatcher.calls) != 1 {
		t.Fatalf("expected a single dispatch, got %d", len(f.dispatcher.calls))
	}
}

func TestRejectRegardlessOfStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.request(t, "maria", "2024-06-11", "09:00")
	confirmed := f.request(t, "maria", "2024-06-11", "09:30")
	if _, err := f.svc.Confirm(ctx, confirmed.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	for _, id := range []int{pending.ID, confirmed.ID, pending.ID} {
		if err := f.svc.Reject(ctx, id); err != nil {
			t.Fatalf("reject %d: %v", id, err)
		}
		if f.appts.status(id) != types.StatusRejected {
			t.Fatalf("appointment %d: expected rejected, got %s", id, f.appts.status(id))
		}
	}

	last := f.events.events[len(f.events.events)-1]
	if last.Type != types.EventRejected || last.Username != "maria" {
		t.Fatalf("unexpected event %+v", last)
	}
}

func TestRejectNotFound(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Reject(context.Background(), 404)
	var nerr *NotFoundError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestListByUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.request(t, "maria", "2024-06-12", "09:00")
	f.request(t, "maria", "2024-06-11", "15:00")
	f.request(t, "maria", "2024-06-11", "08:30")
	f.request(t, "luca", "2024-06-11", "10:00")

	appts, err := f.svc.ListByUser(ctx, "maria")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var got []string
	for _, a := range appts {
		got = append(got, a.Date+" "+a.Time)
	}
	want := []string{"2024-06-11 08:30", "2024-06-11 15:00", "2024-06-12 09:00"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	if _, err := f.svc.ListByUser(ctx, ""); !isValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	var nerr *NotFoundError
	if _, err := f.svc.ListByUser(ctx, "ghost"); !errors.As(err, &nerr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestListAll(t *testing.T) {
	f := newFixture(t)
	f.request(t, "luca", "2024-06-12", "09:00")
	f.request(t, "maria", "2024-06-11", "09:00")

	appts, err := f.svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(appts) != 2 || appts[0].Username != "maria" || appts[1].Username != "luca" {
		t.Fatalf("unexpected order %+v", appts)
	}
}

func isValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
