// Package metrics registers the Prometheus instruments the pipeline
// reports into.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all instruments; a nil *Metrics disables reporting.
type Metrics struct {
	PostsHarvested    prometheus.Counter
	SourceFailures    prometheus.Counter
	PostsPersisted    prometheus.Counter
	EnrichmentLookups *prometheus.CounterVec
	Notifications     prometheus.Counter
	HarvestDuration   prometheus.Histogram
}

// New builds and registers all instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PostsHarvested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogharvester_posts_harvested_total",
			Help: "Raw posts returned by source adapters.",
		}),
		SourceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogharvester_source_failures_total",
			Help: "Sources that failed during a harvest run.",
		}),
		PostsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogharvester_posts_persisted_total",
			Help: "Enriched posts written to the store.",
		}),
		EnrichmentLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogharvester_enrichment_lookups_total",
			Help: "Market-cap lookups by provider and outcome.",
		}, []string{"provider", "outcome"}),
		Notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogharvester_notifications_total",
			Help: "Notifications created by the fan-out.",
		}),
		HarvestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blogharvester_harvest_duration_seconds",
			Help:    "Wall time of a full harvest run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.PostsHarvested,
			m.SourceFailures,
			m.PostsPersisted,
			m.EnrichmentLookups,
			m.Notifications,
			m.HarvestDuration,
		)
	}
	return m
}
