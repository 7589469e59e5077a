// Package metrics provides observability hooks for fork sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector observes session activity. Implementations must be cheap;
// hooks run on the session's serialized path.
type Collector interface {
	ForkCreated()
	ForkSelected()
	CallExecuted(committing bool, failed bool, dur time.Duration)
}

// NoopCollector ignores every observation.
type NoopCollector struct{}

var _ Collector = &NoopCollector{}

func NewNoopCollector() *NoopCollector { return &NoopCollector{} }

func (nc *NoopCollector) ForkCreated() {}

func (nc *NoopCollector) ForkSelected() {}

func (nc *NoopCollector) CallExecuted(bool, bool, time.Duration) {}

// SessionCollector reports session activity to prometheus.
type SessionCollector struct {
	forksCreated  prometheus.Counter
	forksSelected prometheus.Counter
	calls         *prometheus.CounterVec
	callDuration  prometheus.Histogram
}

var _ Collector = &SessionCollector{}

// NewSessionCollector constructs a collector registering its metrics
// with the given registerer.
func NewSessionCollector(registerer prometheus.Registerer) *SessionCollector {
	factory := promauto.With(registerer)
	return &SessionCollector{
		forksCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "forkvm",
			Name:      "forks_created_total",
			Help:      "number of fork snapshots provisioned",
		}),
		forksSelected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "forkvm",
			Name:      "forks_selected_total",
			Help:      "number of fork switches",
		}),
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forkvm",
			Name:      "calls_total",
			Help:      "number of executed calls",
		}, []string{"mode", "outcome"}),
		callDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "forkvm",
			Name:      "call_duration_seconds",
			Help:      "duration of executed calls",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
}

func (sc *SessionCollector) ForkCreated() {
	sc.forksCreated.Inc()
}

func (sc *SessionCollector) ForkSelected() {
	sc.forksSelected.Inc()
}

func (sc *SessionCollector) CallExecuted(committing bool, failed bool, dur time.Duration) {
	mode := "call"
	if committing {
		mode = "write"
	}
	outcome := "ok"
	if failed {
		outcome = "failed"
	}
	sc.calls.WithLabelValues(mode, outcome).Inc()
	sc.callDuration.Observe(dur.Seconds())
}
