package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cfpcomb"

const (
	StatusSuccess = "success"
	StatusFailure = "failure"

	ResultInserted = "inserted"
	ResultSkipped  = "skipped"
)

// Metrics holds the collection cycle collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	adapterRuns    *prometheus.CounterVec
	recordsFetched *prometheus.CounterVec
	recordsStored  *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.adapterRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "adapter_runs_total",
		Help:      "Source adapter runs by outcome",
	}, []string{"source", "status"})
	m.recordsFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_fetched_total",
		Help:      "Records yielded by source adapters",
	}, []string{"source"})
	m.recordsStored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_stored_total",
		Help:      "Records offered to the store by result",
	}, []string{"result"})
	m.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Duration of full collection cycles",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})

	m.registry.MustRegister(
		m.adapterRuns, m.recordsFetched, m.recordsStored, m.cycleDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) ObserveAdapter(source string, err error, fetched int) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	m.adapterRuns.WithLabelValues(source, status).Inc()
	m.recordsFetched.WithLabelValues(source).Add(float64(fetched))
}

func (m *Metrics) ObserveStore(inserted, skipped int) {
	m.recordsStored.WithLabelValues(ResultInserted).Add(float64(inserted))
	m.recordsStored.WithLabelValues(ResultSkipped).Add(float64(skipped))
}

func (m *Metrics) ObserveCycle(d time.Duration) {
	m.cycleDuration.Observe(d.Seconds())
}

func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
