// internal/metrics/collector.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "evm_sniper"

// Collector owns the sniper's metrics on a private registry. A nil *Collector
// is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	polls            prometheus.Counter
	scanErrors       prometheus.Counter
	targetsTriggered prometheus.Counter
	swaps            *prometheus.CounterVec
	swapDuration     prometheus.Histogram
	rpcLatency       *prometheus.HistogramVec
	pairLiquidity    *prometheus.GaugeVec
	pairPrice        *prometheus.GaugeVec
}

// NewCollector creates and registers all metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Completed scanner poll cycles",
		}),
		scanErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_errors_total",
			Help:      "Pair reads that failed during a poll cycle",
		}),
		targetsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "targets_triggered_total",
			Help:      "Targets pushed onto the trade queue",
		}),
		swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swaps_total",
			Help:      "Swap executions by outcome",
		}, []string{"status"}),
		swapDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "swap_duration_seconds",
			Help:      "Time from dequeue to receipt",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		rpcLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_latency_seconds",
			Help:      "RPC request latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"method"}),
		pairLiquidity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pair_liquidity",
			Help:      "Raw quote-side reserve of a watched pair",
		}, []string{"pair"}),
		pairPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pair_price",
			Help:      "Raw reserve ratio of a watched pair",
		}, []string{"pair"}),
	}

	c.registry.MustRegister(
		c.polls,
		c.scanErrors,
		c.targetsTriggered,
		c.swaps,
		c.swapDuration,
		c.rpcLatency,
		c.pairLiquidity,
		c.pairPrice,
	)
	return c
}

// Registry exposes the underlying registry for the HTTP handler and tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) PollCompleted() {
	if c == nil {
		return
	}
	c.polls.Inc()
}

func (c *Collector) ScanError() {
	if c == nil {
		return
	}
	c.scanErrors.Inc()
}

func (c *Collector) TargetTriggered() {
	if c == nil {
		return
	}
	c.targetsTriggered.Inc()
}

// RecordSwap counts one execution and, for attempts that reached the chain,
// its duration.
func (c *Collector) RecordSwap(status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.swaps.WithLabelValues(status).Inc()
	if duration > 0 {
		c.swapDuration.Observe(duration.Seconds())
	}
}

// ObserveRPC satisfies blockchain.LatencyRecorder.
func (c *Collector) ObserveRPC(method string, d time.Duration) {
	if c == nil {
		return
	}
	c.rpcLatency.WithLabelValues(method).Observe(d.Seconds())
}

func (c *Collector) UpdatePair(pair string, price, liquidity float64) {
	if c == nil {
		return
	}
	c.pairPrice.WithLabelValues(pair).Set(price)
	c.pairLiquidity.WithLabelValues(pair).Set(liquidity)
}
