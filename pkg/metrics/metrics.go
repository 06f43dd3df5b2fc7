// Package metrics provides Prometheus metrics for the watch session.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes of a sync operation.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var (
	syncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "davsync_operations_total",
			Help: "Total number of remote operations by kind and outcome",
		},
		[]string{"operation", "outcome"},
	)

	bytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "davsync_bytes_uploaded_total",
			Help: "Total bytes uploaded with PUT",
		},
	)

	watchEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "davsync_watch_events_total",
			Help: "Total number of filesystem events by how they were handled",
		},
		[]string{"result"},
	)

	reloadNotificationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "davsync_reload_notifications_total",
			Help: "Total number of livereload notifications sent",
		},
	)

	reloadClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "davsync_reload_clients",
			Help: "Number of connected livereload clients",
		},
	)
)

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordOperation records the outcome of a remote operation.
func RecordOperation(operation, outcome string) {
	syncOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordUpload records the size of a successful upload.
func RecordUpload(bytes int64) {
	bytesUploaded.Add(float64(bytes))
}

// RecordEvent records how a watch event was handled, e.g. "ignored" or
// "synced".
func RecordEvent(result string) {
	watchEventsTotal.WithLabelValues(result).Inc()
}

// RecordReload records a livereload notification.
func RecordReload() {
	reloadNotificationsTotal.Inc()
}

// SetReloadClients sets the number of connected livereload clients.
func SetReloadClients(n int) {
	reloadClients.Set(float64(n))
}
