// Package metrics provides Prometheus metrics for the brightness samplers.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	brightness = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "luxnode",
		Subsystem: "sensor",
		Name:      "brightness",
		Help:      "Last sampled brightness (0-255)",
	}, []string{"source"})

	samplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "luxnode",
		Subsystem: "sensor",
		Name:      "samples_total",
		Help:      "Total successful samples",
	}, []string{"source"})

	sampleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "luxnode",
		Subsystem: "sensor",
		Name:      "errors_total",
		Help:      "Total failed samples by error kind",
	}, []string{"source", "kind"})

	sampleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "luxnode",
		Subsystem: "sensor",
		Name:      "sample_duration_seconds",
		Help:      "Time spent taking one sample",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"source"})

	cameraCandidates = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "luxnode",
		Subsystem: "devices",
		Name:      "candidates",
		Help:      "Number of capture devices that can be opened",
	})

	// Local cache for API access.
	lastSamples   = make(map[string]Sample)
	lastSamplesMu sync.RWMutex
)

// Sample holds the last value recorded for a source.
type Sample struct {
	Brightness int
	Duration   time.Duration
	At         time.Time
}

// ObserveSample records a successful sample.
func ObserveSample(source string, value int, took time.Duration) {
	brightness.WithLabelValues(source).Set(float64(value))
	samplesTotal.WithLabelValues(source).Inc()
	sampleDuration.WithLabelValues(source).Observe(took.Seconds())

	lastSamplesMu.Lock()
	lastSamples[source] = Sample{Brightness: value, Duration: took, At: time.Now()}
	lastSamplesMu.Unlock()
}

// ObserveError records a failed sample. kind is the capture error kind, or
// "unknown".
func ObserveError(source, kind string) {
	if kind == "" {
		kind = "unknown"
	}
	sampleErrors.WithLabelValues(source, kind).Inc()
}

// SetCandidates sets the number of openable capture devices.
func SetCandidates(n int) {
	cameraCandidates.Set(float64(n))
}

// LastSample returns the last successful sample for a source.
func LastSample(source string) (Sample, bool) {
	lastSamplesMu.RLock()
	defer lastSamplesMu.RUnlock()
	s, ok := lastSamples[source]
	return s, ok
}

// Reset clears the metrics and cache for a source.
func Reset(source string) {
	brightness.DeleteLabelValues(source)
	samplesTotal.DeleteLabelValues(source)
	sampleDuration.DeleteLabelValues(source)
	sampleErrors.DeletePartialMatch(prometheus.Labels{"source": source})

	lastSamplesMu.Lock()
	delete(lastSamples, source)
	lastSamplesMu.Unlock()
}
