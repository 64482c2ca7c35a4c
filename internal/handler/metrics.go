package handler

import (
	"fmt"
	"net/http"

	"github.com/usergate/usergate/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "usergate_users_created_total %d\n", snap.UsersCreated)
	writeMetric(w, "usergate_users_updated_total %d\n", snap.UsersUpdated)
	writeMetric(w, "usergate_users_deleted_total %d\n", snap.UsersDeleted)
	writeMetric(w, "usergate_users_rejected_total %d\n", snap.UsersRejected)

	writeMetric(w, "usergate_email_validation_calls_total{outcome=\"valid\"} %d\n", snap.ValidationsValid)
	writeMetric(w, "usergate_email_validation_calls_total{outcome=\"invalid\"} %d\n", snap.ValidationsInvalid)
	writeMetric(w, "usergate_email_validation_calls_total{outcome=\"unavailable\"} %d\n", snap.ValidationsUnavailable)

	calls := snap.ValidationsValid + snap.ValidationsInvalid + snap.ValidationsUnavailable
	writeMetric(w, "usergate_email_validation_duration_seconds_count %d\n", calls)
	writeMetric(w, "usergate_email_validation_duration_seconds_sum %.6f\n", float64(snap.ValidationDurationTotalNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
