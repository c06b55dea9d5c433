package obs

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "memecoinbot"

// Order stages.
const (
	StageAdmission = "admission"
	StageExecution = "execution"
)

// Metrics collects prometheus counters and in-process latency stats.
// Every method is safe on a nil receiver.
type Metrics struct {
	orders         *prometheus.CounterVec
	riskRejections *prometheus.CounterVec
	alerts         prometheus.Counter
	markUpdates    prometheus.Counter
	fetchAttempts  *prometheus.CounterVec
	fetchFailures  *prometheus.CounterVec
	callbackErrors prometheus.Counter

	riskEvalLatency LatencyStats
	fetchLatency    LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the in-process latency values.
type Snapshot struct {
	RiskEvalLatency LatencySnapshot
	FetchLatency    LatencySnapshot
}

// NewMetrics allocates the collectors and registers them on reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "orders_total",
			Help:      "Orders evaluated by stage and result.",
		}, []string{"stage", "result"}),
		riskRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "risk_rejections_total",
			Help:      "Orders rejected by the risk gate by stage and reason.",
		}, []string{"stage", "reason"}),
		alerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "risk_alerts_total",
			Help:      "Advisory alerts raised by the aggregate risk sweep.",
		}),
		markUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "mark_price_updates_total",
			Help:      "Mark price overwrites.",
		}),
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "fetch_attempts_total",
			Help:      "Transport invocations by operation.",
		}, []string{"op"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "fetch_failures_total",
			Help:      "Failed transport or decode attempts by operation.",
		}, []string{"op"}),
		callbackErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "quote_callback_errors_total",
			Help:      "Quote subscription callbacks that returned an error or panicked.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.orders,
			m.riskRejections,
			m.alerts,
			m.markUpdates,
			m.fetchAttempts,
			m.fetchFailures,
			m.callbackErrors,
		)
	}
	return m
}

// ObserveOrder counts an order at a stage.
func (m *Metrics) ObserveOrder(stage string, accepted bool) {
	if m == nil {
		return
	}
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	m.orders.WithLabelValues(stage, result).Inc()
}

// IncRiskRejection counts a risk denial.
func (m *Metrics) IncRiskRejection(stage, reason string) {
	if m == nil {
		return
	}
	m.riskRejections.WithLabelValues(stage, reason).Inc()
}

// IncAlert counts an aggregate risk alert.
func (m *Metrics) IncAlert() {
	if m == nil {
		return
	}
	m.alerts.Inc()
}

// IncMarkUpdate counts a mark price overwrite.
func (m *Metrics) IncMarkUpdate() {
	if m == nil {
		return
	}
	m.markUpdates.Inc()
}

// ObserveFetchAttempt counts one transport invocation and its latency.
func (m *Metrics) ObserveFetchAttempt(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(op).Inc()
	m.fetchLatency.Observe(d)
}

// IncFetchFailure counts a failed transport or decode attempt.
func (m *Metrics) IncFetchFailure(op string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(op).Inc()
}

// IncCallbackError counts a failed quote callback.
func (m *Metrics) IncCallbackError() {
	if m == nil {
		return
	}
	m.callbackErrors.Inc()
}

// ObserveRiskEval measures risk evaluation latency.
func (m *Metrics) ObserveRiskEval(d time.Duration) {
	if m == nil {
		return
	}
	m.riskEvalLatency.Observe(d)
}

// Snapshot returns a copy of the latency stats.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		RiskEvalLatency: m.riskEvalLatency.Snapshot(),
		FetchLatency:    m.fetchLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
