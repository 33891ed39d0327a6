package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesCollectors(t *testing.T) {
	Register()
	Register()

	AppointmentEvent("requested")
	DispatchFailed("calendar")
	DispatchTimer("calendar").ObserveDuration()
	PublishFailed()
	ExportUploaded()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, name := range []string{
		`salonbook_appointments_total{event="requested"}`,
		`salonbook_dispatch_failures_total{integration="calendar"}`,
		`salonbook_dispatch_duration_seconds_count{integration="calendar"}`,
		`salonbook_events_publish_failures_total`,
		`salonbook_exports_total`,
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
