// Package metrics 汇总索引器的 Prometheus 指标，进程内单例注册到默认 registry。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jup_indexer"

var (
	BlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "block",
		Name:      "processed_total",
		Help:      "Blocks handled by result",
	}, []string{"result"})

	TxsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "block",
		Name:      "txs_total",
		Help:      "Transactions seen by outcome",
	}, []string{"outcome"})

	InstructionsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "decoder",
		Name:      "instructions_skipped_total",
		Help:      "Jupiter instructions that produced no swap",
	}, []string{"reason"})

	SwapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "block",
		Name:      "swaps_total",
		Help:      "Swaps extracted by Jupiter version",
	}, []string{"version"})

	HopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "route",
		Name:      "hops_total",
		Help:      "AMM hops observed inside Jupiter swaps",
	}, []string{"amm"})

	RowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "entity",
		Name:      "rows_total",
		Help:      "Entity rows emitted by entity type",
	}, []string{"entity"})

	BlockDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "block",
		Name:      "duration_seconds",
		Help:      "Block processing time by phase",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"phase"})

	BlockLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "block_latency_seconds",
		Help:      "Delay between block time and receipt",
		Buckets:   []float64{.5, 1, 2, 5, 10, 30, 60},
	})

	HighestSlot = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "highest_slot",
		Help:      "Highest slot received",
	})

	StreamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "reconnects_total",
		Help:      "gRPC stream reconnects",
	})

	KafkaFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "kafka",
		Name:      "send_failures_total",
		Help:      "Kafka messages that failed after all retries",
	})

	SlotGaps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "slot",
		Name:      "gaps_total",
		Help:      "Slots in parent-slot gaps by audit result: skipped, missing, unverified, dropped",
	}, []string{"kind"})
)

// ObservePhase 记录某阶段耗时
func ObservePhase(phase string, start time.Time) {
	BlockDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

// Handler 暴露 /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
