// Package metrics exposes the pipeline counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Bucket fetch outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Registry holds the catalogmix metrics. A nil *Registry is valid and
// records nothing.
type Registry struct {
	reg            *prometheus.Registry
	BucketFetches  *prometheus.CounterVec
	RecordsDropped *prometheus.CounterVec
	BuildDuration  prometheus.Histogram
	CatalogItems   prometheus.Gauge
	StaleDiscarded prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogmix_bucket_fetch_total",
		Help: "Live bucket fetches by outcome.",
	}, []string{"bucket", "outcome"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogmix_records_dropped_total",
		Help: "Raw records dropped during normalization.",
	}, []string{"source"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalogmix_build_duration_seconds",
		Help:    "Wall time of one catalog build.",
		Buckets: prometheus.DefBuckets,
	})
	items := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "catalogmix_catalog_items",
		Help: "Items in the last published catalog.",
	})
	stale := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalogmix_stale_results_discarded_total",
		Help: "Builds superseded by a newer request.",
	})

	r.MustRegister(fetches, dropped, duration, items, stale)
	return &Registry{
		reg:            r,
		BucketFetches:  fetches,
		RecordsDropped: dropped,
		BuildDuration:  duration,
		CatalogItems:   items,
		StaleDiscarded: stale,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

func (r *Registry) ObserveFetch(bucket string, err error) {
	if r == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	r.BucketFetches.WithLabelValues(bucket, outcome).Inc()
}

func (r *Registry) ObserveDropped(source string) {
	if r == nil {
		return
	}
	r.RecordsDropped.WithLabelValues(source).Inc()
}

func (r *Registry) ObserveBuild(d time.Duration) {
	if r == nil {
		return
	}
	r.BuildDuration.Observe(d.Seconds())
}

func (r *Registry) SetCatalogItems(n int) {
	if r == nil {
		return
	}
	r.CatalogItems.Set(float64(n))
}

func (r *Registry) ObserveStale() {
	if r == nil {
		return
	}
	r.StaleDiscarded.Inc()
}
