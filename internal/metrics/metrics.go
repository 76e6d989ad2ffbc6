// Package metrics defines the Prometheus instruments of the image editor.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Command outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	OutcomeEmpty  = "empty" // command returned no image, e.g. a failed load
)

// Metrics groups the editor's collectors.
type Metrics struct {
	commandsStarted  prometheus.Counter
	commandsFinished *prometheus.CounterVec
	historyOps       *prometheus.CounterVec
	loadDuration     prometheus.Histogram
	uploadDuration   prometheus.Histogram
	openImages       prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commandsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_edit_commands_started_total",
			Help: "Total number of image commands launched",
		}),
		commandsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "image_edit_commands_finished_total",
			Help: "Total number of image commands drained, by outcome",
		}, []string{"outcome"}),
		historyOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "image_edit_history_operations_total",
			Help: "Total number of successful undo and redo operations",
		}, []string{"op"}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "image_edit_load_duration_seconds",
			Help:    "Time spent decoding images from disk",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		uploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "image_edit_upload_duration_seconds",
			Help:    "Total time spent uploading an image to its texture",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		openImages: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "image_edit_open_images",
			Help: "Number of images currently held by the collection",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.commandsStarted,
			m.commandsFinished,
			m.historyOps,
			m.loadDuration,
			m.uploadDuration,
			m.openImages,
		)
	}
	return m
}

func (m *Metrics) CommandStarted() {
	if m == nil {
		return
	}
	m.commandsStarted.Inc()
}

func (m *Metrics) CommandFinished(outcome string) {
	if m == nil {
		return
	}
	m.commandsFinished.WithLabelValues(outcome).Inc()
}

// HistoryOp counts a successful "undo" or "redo".
func (m *Metrics) HistoryOp(op string) {
	if m == nil {
		return
	}
	m.historyOps.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveLoad(d time.Duration) {
	if m == nil {
		return
	}
	m.loadDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveUpload(d time.Duration) {
	if m == nil {
		return
	}
	m.uploadDuration.Observe(d.Seconds())
}

func (m *Metrics) SetOpenImages(n int) {
	if m == nil {
		return
	}
	m.openImages.Set(float64(n))
}
