package stress

import (
	"github.com/llxisdsh/stripeset"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the prometheus collectors fed by a stress run.
type Metrics struct {
	Ops      *prometheus.CounterVec
	Size     prometheus.Gauge
	Buckets  prometheus.Gauge
	Locks    prometheus.Gauge
	Resizes  prometheus.Gauge
	Failures prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stripeset",
			Subsystem: "stress",
			Name:      "operations_total",
			Help:      "Set operations issued by stress workers.",
		}, []string{"op", "result"}),
		Size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stripeset",
			Subsystem: "stress",
			Name:      "set_size",
			Help:      "Element count of the set under test.",
		}),
		Buckets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stripeset",
			Subsystem: "stress",
			Name:      "set_buckets",
			Help:      "Bucket count of the set under test.",
		}),
		Locks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stripeset",
			Subsystem: "stress",
			Name:      "set_locks",
			Help:      "Stripe lock count of the set under test.",
		}),
		Resizes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stripeset",
			Subsystem: "stress",
			Name:      "set_resizes",
			Help:      "Table resizes performed by the set under test.",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stripeset",
			Subsystem: "stress",
			Name:      "oracle_mismatches_total",
			Help:      "Operations whose result disagreed with the oracle.",
		}),
	}
	reg.MustRegister(m.Ops, m.Size, m.Buckets, m.Locks, m.Resizes, m.Failures)
	return m
}

func (m *Metrics) observe(stats stripeset.SetStats) {
	m.Size.Set(float64(stats.Size))
	m.Buckets.Set(float64(stats.Buckets))
	m.Locks.Set(float64(stats.Locks))
	m.Resizes.Set(float64(stats.TotalResizes))
}

func resultLabel(ok bool) string {
	if ok {
		return "hit"
	}
	return "miss"
}
