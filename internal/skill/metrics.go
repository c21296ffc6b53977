package skill

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report skill activity.
type Metrics struct {
	invocationDuration *prometheus.HistogramVec
	fallbacks          *prometheus.CounterVec
	requestsActive     prometheus.Gauge
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// defaultMetrics returns the package-level metrics instance registered with
// the global Prometheus registry. The collectors are created only once to
// avoid duplicate registration panics when multiple runners are instantiated
// (e.g. in unit tests or per-request runners).
func defaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics constructs a Metrics instance using the provided registerer.
// The caller is responsible for supplying a fresh registry when unique metric
// names are required (for example in tests). Any registration error panics,
// mirroring promauto semantics so configuration bugs surface early.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	invocationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wayfinder",
			Subsystem: "skill",
			Name:      "invocation_duration_seconds",
			Help:      "Duration of each skill invocation.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"skill", "status"},
	)
	fallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wayfinder",
			Subsystem: "skill",
			Name:      "fallbacks_total",
			Help:      "Number of skill invocations that substituted the fallback output.",
		},
		[]string{"skill", "reason"},
	)
	requestsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wayfinder",
			Subsystem: "skill",
			Name:      "requests_active",
			Help:      "Number of pipeline requests currently executing.",
		},
	)

	collectors := []prometheus.Collector{invocationDuration, fallbacks, requestsActive}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch collector.(type) {
				case *prometheus.HistogramVec:
					invocationDuration = already.ExistingCollector.(*prometheus.HistogramVec)
				case *prometheus.CounterVec:
					fallbacks = already.ExistingCollector.(*prometheus.CounterVec)
				case prometheus.Gauge:
					requestsActive = already.ExistingCollector.(prometheus.Gauge)
				}
				continue
			}
			panic(err)
		}
	}

	return &Metrics{
		invocationDuration: invocationDuration,
		fallbacks:          fallbacks,
		requestsActive:     requestsActive,
	}
}

// ObserveInvocation records the time spent in a skill with a status label.
func (m *Metrics) ObserveInvocation(skill, status string, duration time.Duration) {
	if m == nil || m.invocationDuration == nil {
		return
	}
	m.invocationDuration.WithLabelValues(skill, status).Observe(duration.Seconds())
}

// IncFallback counts a fallback substitution for the given skill.
func (m *Metrics) IncFallback(skill, reason string) {
	if m == nil || m.fallbacks == nil {
		return
	}
	m.fallbacks.WithLabelValues(skill, reason).Inc()
}

// IncActiveRequests marks a pipeline request as active.
func (m *Metrics) IncActiveRequests() {
	if m == nil || m.requestsActive == nil {
		return
	}
	m.requestsActive.Inc()
}

// DecActiveRequests marks a pipeline request as finished.
func (m *Metrics) DecActiveRequests() {
	if m == nil || m.requestsActive == nil {
		return
	}
	m.requestsActive.Dec()
}
