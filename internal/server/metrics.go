package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/echowall/echowall/internal/errors"
	"github.com/echowall/echowall/internal/observability"
)

var metricsProxyClient = &http.Client{
	Timeout: 5 * time.Second,
}

// MetricsHandler proxies Prometheus metrics from the internal exporter so
// callers can scrape /metrics on the main HTTP server.
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	exporter := observability.PrometheusExporter
	if exporter == nil {
		HandleError(w, r, apperrors.NewServiceUnavailable("Metrics exporter not initialized"))
		return
	}

	metricsPort := observability.GetMetricsPort()
	if metricsPort == 0 {
		metricsPort = viper.GetInt("metrics.port")
		if metricsPort == 0 {
			metricsPort = 9090
		}
	}
	metricsURL := fmt.Sprintf("http://127.0.0.1:%d/metrics", metricsPort)

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, metricsURL, nil)
	if err != nil {
		HandleError(w, r, apperrors.WrapInternal(err, "unable to construct metrics request"))
		return
	}

	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := metricsProxyClient.Do(req)
	if err != nil {
		HandleError(w, r, apperrors.NewServiceUnavailable("Prometheus exporter unavailable"))
		return
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain; version=0.0.4; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		// Response already started; nothing sensible to send.
		if observability.ServerLogger != nil && !strings.Contains(err.Error(), "broken pipe") {
			observability.ServerLogger.Warn("Failed to stream metrics response")
		}
	}
}
