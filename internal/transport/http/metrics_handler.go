package http

import (
	"net/http"

	apierrors "covcheck/internal/errors"
)

// MetricsHandler serves the Prometheus exposition endpoint
type MetricsHandler struct {
	exporter     http.Handler
	errorHandler *apierrors.ErrorHandler
}

// NewMetricsHandler wraps the Prometheus handler. exporter may be nil when
// metrics are disabled, in which case requests get 503.
func NewMetricsHandler(exporter http.Handler, errorHandler *apierrors.ErrorHandler) *MetricsHandler {
	return &MetricsHandler{exporter: exporter, errorHandler: errorHandler}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusServiceUnavailable,
			apierrors.CodeUnavailable,
			"Metrics are disabled",
			"set COVCHECK_TELEMETRY_METRIC_EXPORTER=prometheus",
		))
		return
	}
	h.exporter.ServeHTTP(w, r)
}
