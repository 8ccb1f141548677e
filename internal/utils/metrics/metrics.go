// internal/utils/metrics/metrics.go
package metrics

import (
	"time"
)

func status(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

// RecordCycle записывает результат цикла fetch + enrich
func (c *Collector) RecordCycle(trigger string, duration time.Duration, success bool) {
	c.cycles.WithLabelValues(trigger, status(success)).Inc()
	c.duration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// SetCandidates обновляет число кандидатов на этапе конвейера
func (c *Collector) SetCandidates(stage string, n int) {
	c.candidates.WithLabelValues(stage).Set(float64(n))
}

// RecordRPCLatency записывает метрики RPC-запроса
func (c *Collector) RecordRPCLatency(method, endpoint string, duration time.Duration, success bool) {
	c.rpcLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	c.rpcCalls.WithLabelValues(method, status(success)).Inc()
}
