// internal/utils/metrics/collector.go
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricType представляет тип метрики
type MetricType string

const (
	CycleCounterType   MetricType = "cycle_counter"
	CycleDurationType  MetricType = "cycle_duration"
	CandidatesType     MetricType = "candidates"
	RPCLatencyType     MetricType = "rpc_latency"
	RPCCallCounterType MetricType = "rpc_calls"
)

const namespace = "aave_liquidator"

// Collector управляет набором метрик конвейера кандидатов
type Collector struct {
	metrics sync.Map

	cycles     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	candidates *prometheus.GaugeVec
	rpcLatency *prometheus.HistogramVec
	rpcCalls   *prometheus.CounterVec
}

// NewCollector создает коллектор и регистрирует метрики в reg.
// A nil reg leaves the metrics unregistered, which is what tests want.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_cycles_total",
				Help:      "Candidate pipeline cycles by trigger and outcome",
			},
			[]string{"trigger", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_cycle_duration_seconds",
				Help:      "Duration of a fetch + enrich cycle",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"trigger"},
		),
		candidates: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "candidates",
				Help:      "Candidates produced by the last cycle, per stage",
			},
			[]string{"stage"},
		),
		rpcLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_latency_seconds",
				Help:      "Contract read latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"method", "endpoint"},
		),
		rpcCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_calls_total",
				Help:      "Contract reads by method and outcome",
			},
			[]string{"method", "status"},
		),
	}
	c.initializeMetrics(reg)
	return c
}

func (c *Collector) initializeMetrics(reg prometheus.Registerer) {
	metricsMap := map[MetricType]prometheus.Collector{
		CycleCounterType:   c.cycles,
		CycleDurationType:  c.duration,
		CandidatesType:     c.candidates,
		RPCLatencyType:     c.rpcLatency,
		RPCCallCounterType: c.rpcCalls,
	}

	for metricType, metric := range metricsMap {
		c.metrics.Store(metricType, metric)
		if reg != nil {
			reg.MustRegister(metric)
		}
	}
}

// Reset сбрасывает все метрики (полезно для тестирования)
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		}
		return true
	})
}
