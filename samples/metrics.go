package samples

import (
	"github.com/prometheus/client_golang/prometheus"
)

var loadBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

type loaderMetrics struct {
	filesLoaded  *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec
}

func newLoaderMetrics(reg prometheus.Registerer) *loaderMetrics {
	m := &loaderMetrics{
		filesLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamtrace",
			Subsystem: "samples",
			Name:      "files_loaded_total",
			Help:      "Number of sample files parsed",
		}, []string{"protocol", "category"}),
		loadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "streamtrace",
			Subsystem: "samples",
			Name:      "load_duration_seconds",
			Help:      "Time to load and concatenate the sample files of one rate condition",
			Buckets:   loadBuckets,
		}, []string{"protocol", "category"}),
	}
	m.filesLoaded = register(reg, m.filesLoaded).(*prometheus.CounterVec)
	m.loadDuration = register(reg, m.loadDuration).(*prometheus.HistogramVec)
	return m
}

func newCacheRequests(reg prometheus.Registerer) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streamtrace",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Rate sample cache lookups by result",
	}, []string{"result"})
	return register(reg, c).(*prometheus.CounterVec)
}

// register returns the collector already registered under the same descriptor
// when there is one, so several loaders can share a registry.
func register(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}
	return c
}
