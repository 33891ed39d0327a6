package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExport(t *testing.T) {
	f := newFixture(t)
	f.request(t, "maria", "2024-06-11", "09:00")
	appt := f.request(t, "luca", "2024-06-12", "15:30")
	if err := f.svc.Reject(context.Background(), appt.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	objects := &memObjects{}
	svc := NewExportService(f.appts, objects)
	svc.now = func() time.Time { return time.Date(2024, 6, 13, 8, 0, 0, 0, time.UTC) }

	key, err := svc.Export(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(key, "exports/appointments-20240613T080000Z-") || !strings.HasSuffix(key, ".csv") {
		t.Fatalf("unexpected key %q", key)
	}
	if objects.types[key] != "text/csv" {
		t.Fatalf("unexpected content type %q", objects.types[key])
	}

	lines := strings.Split(strings.TrimSpace(string(objects.objects[key])), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %v", lines)
	}
	if lines[0] != "id,username,service,date,time,note,status" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "1,maria,haircut,2024-06-11,09:00,,pending" {
		t.Fatalf("unexpected row %q", lines[1])
	}
	if lines[2] != "2,luca,haircut,2024-06-12,15:30,,rejected" {
		t.Fatalf("unexpected row %q", lines[2])
	}
}

func TestExportDisabled(t *testing.T) {
	svc := NewExportService(newMemAppointments(&memUsers{}), nil)
	if svc.Enabled() {
		t.Fatal("expected exports disabled")
	}
	if _, err := svc.Export(context.Background()); !errors.Is(err, ErrExportsDisabled) {
		t.Fatalf("expected ErrExportsDisabled, got %v", err)
	}
}

func TestExportStorageFailure(t *testing.T) {
	svc := NewExportService(newMemAppointments(&memUsers{}), &memObjects{err: errors.New("bucket gone")})
	_, err := svc.Export(context.Background())
	var ierr *IntegrationError
	if !errors.As(err, &ierr) || ierr.Integration != "storage" {
		t.Fatalf("expected storage IntegrationError, got %v", err)
	}
}
