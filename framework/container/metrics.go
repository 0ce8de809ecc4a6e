package container

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports container activity to Prometheus. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	resolutions   *prometheus.CounterVec
	constructions *prometheus.CounterVec
	failures      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	builds        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
//
//	m, err := container.NewMetrics(prometheus.DefaultRegisterer)
//	c := container.New(container.WithMetrics(m))
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goboot",
			Subsystem: "container",
			Name:      "resolutions_total",
			Help:      "Number of Resolve calls per service and lifetime.",
		}, []string{"service", "lifetime"}),
		constructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goboot",
			Subsystem: "container",
			Name:      "constructions_total",
			Help:      "Number of constructor invocations per service.",
		}, []string{"service"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goboot",
			Subsystem: "container",
			Name:      "construction_failures_total",
			Help:      "Number of failed constructor invocations per service.",
		}, []string{"service"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "goboot",
			Subsystem: "container",
			Name:      "construction_duration_seconds",
			Help:      "Time spent inside service constructors.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"service"}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goboot",
			Subsystem: "container",
			Name:      "builds_total",
			Help:      "Container builds by outcome.",
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{m.resolutions, m.constructions, m.failures, m.duration, m.builds} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeResolve(service string, l Lifetime) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(service, l.String()).Inc()
}

func (m *Metrics) observeConstruction(service string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.constructions.WithLabelValues(service).Inc()
	m.duration.WithLabelValues(service).Observe(d.Seconds())
	if err != nil {
		m.failures.WithLabelValues(service).Inc()
	}
}

func (m *Metrics) observeBuild(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.builds.WithLabelValues(outcome).Inc()
}
