package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/salonbook/apiserver/internal/metrics"
	"github.com/salonbook/apiserver/types"
)

const exportContentType = "text/csv"

// ObjectStore uploads export files.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// AppointmentLister lists appointments for export.
type AppointmentLister interface {
	ListAll(ctx context.Context) ([]types.Appointment, error)
}

// ExportService writes CSV snapshots of the appointment book to object storage.
type ExportService struct {
	appointments AppointmentLister
	store        ObjectStore
	now          func() time.Time
}

// NewExportService constructs the service. A nil store disables exports.
func NewExportService(appointments AppointmentLister, store ObjectStore) *ExportService {
	return &ExportService{appointments: appointments, store: store, now: time.Now}
}

// Enabled reports whether an object store is configured.
func (s *ExportService) Enabled() bool {
	return s != nil && s.store != nil
}

// Export uploads every appointment as CSV and returns the object key.
func (s *ExportService) Export(ctx context.Context) (string, error) {
	if !s.Enabled() {
		return "", ErrExportsDisabled
	}

	appts, err := s.appointments.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("list appointments: %w", err)
	}

	data, err := EncodeAppointmentsCSV(appts)
	if err != nil {
		return "", fmt.Errorf("encode csv: %w", err)
	}

	key := fmt.Sprintf("exports/appointments-%s-%s.csv", s.now().UTC().Format("20060102T150405Z"), uuid.NewString())
	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), exportContentType); err != nil {
		return "", &IntegrationError{Integration: "storage", Err: err}
	}

	metrics.ExportUploaded()
	return key, nil
}

// EncodeAppointmentsCSV renders appointments with a header row.
func EncodeAppointmentsCSV(appts []types.Appointment) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "username", "service", "date", "time", "note", "status"}); err != nil {
		return nil, err
	}
	for _, a := range appts {
		record := []string{
			strconv.Itoa(a.ID),
			a.Username,
			a.Service,
			a.Date,
			a.Time,
			a.Note,
			string(a.Status),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
