package internal

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus collectors for the selection engine. All methods
// are safe on a nil receiver, so instrumentation stays optional.
type Metrics struct {
	registry         *prometheus.Registry
	switchesTotal    *prometheus.CounterVec
	selectedBitrate  *prometheus.GaugeVec
	estimatedBitrate *prometheus.GaugeVec
}

// NewMetrics creates and registers the engine's collectors on a private
// registry, so multiple sessions never collide on metric names.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	switchesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "abr_representation_switches_total",
		Help: "Number of times the selected representation changed",
	}, []string{"media_type"})
	selectedBitrate := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "abr_selected_bitrate_bps",
		Help: "Bitrate of the currently selected representation",
	}, []string{"media_type"})
	estimatedBitrate := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "abr_estimated_bitrate_bps",
		Help: "Smoothed throughput estimate",
	}, []string{"media_type"})

	registry.MustRegister(
		switchesTotal,
		selectedBitrate,
		estimatedBitrate,
	)

	return &Metrics{
		registry:         registry,
		switchesTotal:    switchesTotal,
		selectedBitrate:  selectedBitrate,
		estimatedBitrate: estimatedBitrate,
	}
}

// ObserveSwitch records a representation change and the newly active bitrate.
func (m *Metrics) ObserveSwitch(mt MediaType, bitrate int) {
	if m == nil {
		return
	}
	m.switchesTotal.WithLabelValues(string(mt)).Inc()
	m.selectedBitrate.WithLabelValues(string(mt)).Set(float64(bitrate))
}

// SetEstimate records the live smoothed throughput estimate.
func (m *Metrics) SetEstimate(mt MediaType, bps float64) {
	if m == nil {
		return
	}
	m.estimatedBitrate.WithLabelValues(string(mt)).Set(bps)
}

// Handler returns an http.Handler that serves the engine metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
