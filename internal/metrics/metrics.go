// Package metrics holds the Prometheus instruments of the quality engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
)

// Load outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics provides observability for snapshot loads and intent routing.
type Metrics struct {
	registry *prometheus.Registry

	// Snapshot loads by outcome
	LoadsTotal *prometheus.CounterVec

	// Full load latency, file reads included
	LoadDuration prometheus.Histogram

	// Shape of the published snapshot
	SnapshotRecords prometheus.Gauge
	DuplicatePairs  prometheus.Gauge
	QualityScore    prometheus.Gauge
	FlaggedRecords  *prometheus.GaugeVec

	// Routed intents by resolved name and whether they fell back
	IntentsTotal *prometheus.CounterVec
}

// New creates a Metrics instance registered on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		LoadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pdq_snapshot_loads_total",
			Help: "Total snapshot loads by outcome",
		}, []string{"outcome"}),

		LoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pdq_snapshot_load_duration_seconds",
			Help:    "Duration of a full snapshot load",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		SnapshotRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pdq_snapshot_records",
			Help: "Roster records in the published snapshot",
		}),

		DuplicatePairs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pdq_snapshot_duplicate_pairs",
			Help: "Candidate duplicate pairs in the published snapshot",
		}),

		QualityScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pdq_quality_score",
			Help: "Weighted data quality score of the published snapshot",
		}),

		FlaggedRecords: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pdq_flagged_records",
			Help: "Records carrying each dashboard issue in the published snapshot",
		}, []string{"stat"}),

		IntentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pdq_intents_total",
			Help: "Total routed intents by resolved intent and fallback",
		}, []string{"intent", "fallback"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests and custom exporters.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// ObserveLoad records one load attempt. snap is nil on failure.
func (m *Metrics) ObserveLoad(snap *domain.Snapshot, d time.Duration) {
	if m == nil {
		return
	}
	m.LoadDuration.Observe(d.Seconds())
	if snap == nil {
		m.LoadsTotal.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	m.LoadsTotal.WithLabelValues(OutcomeSuccess).Inc()
	m.SnapshotRecords.Set(float64(snap.Total()))
	m.DuplicatePairs.Set(float64(len(snap.Pairs)))
	m.QualityScore.Set(snap.Score.Score)
	for stat, entry := range snap.Stats {
		m.FlaggedRecords.WithLabelValues(stat).Set(float64(entry.Count))
	}
}

// IncrementIntent records a routed intent.
func (m *Metrics) IncrementIntent(intent string, fallback bool) {
	if m != nil {
		m.IntentsTotal.WithLabelValues(intent, strconv.FormatBool(fallback)).Inc()
	}
}
