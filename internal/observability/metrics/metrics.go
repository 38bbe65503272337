package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "leadqualifier"

// QualifierMetrics exposes counters/histograms for chat turns and lead completion.
type QualifierMetrics struct {
	turnsTotal        *prometheus.CounterVec
	backendLatency    *prometheus.HistogramVec
	repairAttempts    *prometheus.CounterVec
	cooldownRejected  prometheus.Counter
	leadsCompleted    *prometheus.CounterVec
	persistenceErrors *prometheus.CounterVec
}

func NewQualifierMetrics(reg prometheus.Registerer) *QualifierMetrics {
	m := &QualifierMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total chat turns by backend and outcome",
		}, []string{"backend", "outcome"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "backend_latency_seconds",
			Help:      "Latency of one backend turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		repairAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "json_repair_total",
			Help:      "JSON repair requests sent to the remote backend",
		}, []string{"result"}),
		cooldownRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "cooldown_rejections_total",
			Help:      "Sends rejected inside the cooldown window",
		}),
		leadsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leads",
			Name:      "completed_total",
			Help:      "Leads frozen at conversation end by tier",
		}, []string{"tier", "status"}),
		persistenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leads",
			Name:      "fanout_errors_total",
			Help:      "Best-effort lead fan-out failures by sink",
		}, []string{"sink"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.backendLatency, m.repairAttempts, m.cooldownRejected, m.leadsCompleted, m.persistenceErrors)
	return m
}

func (m *QualifierMetrics) ObserveTurn(backend, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(backend, outcome).Inc()
	m.backendLatency.WithLabelValues(backend).Observe(seconds)
}

func (m *QualifierMetrics) ObserveRepair(succeeded bool) {
	if m == nil {
		return
	}
	result := "failed"
	if succeeded {
		result = "repaired"
	}
	m.repairAttempts.WithLabelValues(result).Inc()
}

func (m *QualifierMetrics) ObserveCooldown() {
	if m == nil {
		return
	}
	m.cooldownRejected.Inc()
}

func (m *QualifierMetrics) ObserveLeadCompleted(tier string, status string) {
	if m == nil {
		return
	}
	m.leadsCompleted.WithLabelValues(tier, status).Inc()
}

func (m *QualifierMetrics) ObserveFanoutError(sink string) {
	if m == nil {
		return
	}
	m.persistenceErrors.WithLabelValues(sink).Inc()
}
