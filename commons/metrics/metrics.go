package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid"
	OutcomeStorageError = "storage_error"
)

type Metrics struct {
	registry *prometheus.Registry

	UploadOperations *prometheus.CounterVec
	UploadedBytes    prometheus.Counter
	ReapedUploads    prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		UploadOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "media_uploads",
			Name:      "operations_total",
			Help:      "Upload coordinator operations by name and outcome.",
		}, []string{"operation", "outcome"}),
		UploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "media_uploads",
			Name:      "direct_bytes_total",
			Help:      "Bytes written through the server-mediated upload path.",
		}),
		ReapedUploads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "media_uploads",
			Name:      "reaped_multipart_total",
			Help:      "Stale multipart uploads aborted by the reaper.",
		}),
	}

	reg.MustRegister(
		m.UploadOperations,
		m.UploadedBytes,
		m.ReapedUploads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe is nil-safe so services can run without metrics in tests.
func (m *Metrics) Observe(operation, outcome string) {
	if m == nil {
		return
	}
	m.UploadOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
