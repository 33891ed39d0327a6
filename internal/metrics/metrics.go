// Package metrics exposes the Prometheus collectors of the booking API.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	appointmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "salonbook_appointments_total", Help: "Appointment lifecycle changes"},
		[]string{"event"},
	)
	dispatchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "salonbook_dispatch_failures_total", Help: "Failed confirmation integrations"},
		[]string{"integration"},
	)
	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salonbook_dispatch_duration_seconds",
			Help:    "Confirmation integration latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"integration"},
	)
	publishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "salonbook_events_publish_failures_total", Help: "Events that could not be published"},
	)
	exportsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "salonbook_exports_total", Help: "Appointment exports uploaded"},
	)
)

var registerOnce sync.Once

// Register adds the collectors to the default registry. Safe to call twice.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(appointmentsTotal, dispatchFailures, dispatchDuration, publishFailures, exportsTotal)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AppointmentEvent counts a lifecycle change such as "requested".
func AppointmentEvent(event string) {
	appointmentsTotal.WithLabelValues(event).Inc()
}

func DispatchFailed(integration string) {
	dispatchFailures.WithLabelValues(integration).Inc()
}

// DispatchTimer starts timing a call to the named integration.
func DispatchTimer(integration string) *prometheus.Timer {
	return prometheus.NewTimer(dispatchDuration.WithLabelValues(integration))
}

func PublishFailed() {
	publishFailures.Inc()
}

func ExportUploaded() {
	exportsTotal.Inc()
}
