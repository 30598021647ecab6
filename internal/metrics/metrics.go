// Package metrics exposes export counters for Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	imagepkg "github.com/youruser/moodmap/internal/image"
)

// Metrics implements imagepkg.Observer.
type Metrics struct {
	registry      *prometheus.Registry
	exports       *prometheus.CounterVec
	decodeFailed  prometheus.Counter
	exportSeconds prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moodmap",
			Name:      "exports_total",
			Help:      "Exports by result.",
		}, []string{"result"}),
		decodeFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moodmap",
			Name:      "slot_decode_failures_total",
			Help:      "Slot images drawn as placeholders because they could not be decoded.",
		}),
		exportSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "moodmap",
			Name:      "export_duration_seconds",
			Help:      "Time spent composing and encoding an export.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
	m.registry.MustRegister(m.exports, m.decodeFailed, m.exportSeconds)
	return m
}

func (m *Metrics) SlotDecodeFailed() { m.decodeFailed.Inc() }

func (m *Metrics) ExportFinished(err error, elapsed time.Duration) {
	m.exports.WithLabelValues(Result(err)).Inc()
	m.exportSeconds.Observe(elapsed.Seconds())
}

// Result maps an export error to its metric label.
func Result(err error) string {
	var ce *imagepkg.CompositionError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ce) && ce.Kind == imagepkg.ContextUnavailable:
		return "context_unavailable"
	case errors.As(err, &ce) && ce.Kind == imagepkg.EncodeFailed:
		return "encode_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
