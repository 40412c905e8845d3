package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"signaldesk/internal/analysis"
)

// Metrics holds all Prometheus metrics for the signal service.
type Metrics struct {
	RefreshTotal      *prometheus.CounterVec // labels: result=ok|error
	RefreshDur        prometheus.Histogram
	IndicatorCompute  prometheus.Histogram
	AnalysisErrors    *prometheus.CounterVec // labels: class
	RedisBreakerState prometheus.Gauge       // 0=closed, 1=open, 2=half-open

	// Scheduler lanes
	QueueDepthGauge *prometheus.GaugeVec     // labels: lane
	TaskDur         *prometheus.HistogramVec // labels: lane
	TasksTotal      *prometheus.CounterVec   // labels: lane, outcome
}

// NewMetrics registers all metrics with reg. A nil reg means the default
// Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signald_refresh_total",
			Help: "Symbol refreshes by result",
		}, []string{"result"}),
		RefreshDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signald_refresh_duration_seconds",
			Help:    "Fetch + compute + publish latency per symbol",
			Buckets: prometheus.DefBuckets,
		}),
		IndicatorCompute: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signald_indicator_compute_duration_seconds",
			Help:    "Indicator facade compute latency per bar window",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		AnalysisErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signald_analysis_errors_total",
			Help: "Analysis service failures by error class",
		}, []string{"class"}),
		RedisBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signald_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),

		QueueDepthGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signald_scheduler_queue_depth",
			Help: "Tasks waiting in a scheduler lane",
		}, []string{"lane"}),
		TaskDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signald_scheduler_task_duration_seconds",
			Help:    "Execution time of scheduled tasks (excludes pacing)",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"lane"}),
		TasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signald_scheduler_tasks_total",
			Help: "Scheduled tasks by outcome",
		}, []string{"lane", "outcome"}),
	}

	reg.MustRegister(
		m.RefreshTotal,
		m.RefreshDur,
		m.IndicatorCompute,
		m.AnalysisErrors,
		m.RedisBreakerState,
		m.QueueDepthGauge,
		m.TaskDur,
		m.TasksTotal,
	)

	return m
}

// QueueDepth implements scheduler.Observer.
func (m *Metrics) QueueDepth(lane string, depth int) {
	m.QueueDepthGauge.WithLabelValues(lane).Set(float64(depth))
}

// TaskFinished implements scheduler.Observer.
func (m *Metrics) TaskFinished(lane string, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.TaskDur.WithLabelValues(lane).Observe(took.Seconds())
	m.TasksTotal.WithLabelValues(lane, outcome).Inc()
}

// ObserveRefresh records one symbol refresh.
func (m *Metrics) ObserveRefresh(took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RefreshTotal.WithLabelValues(result).Inc()
	m.RefreshDur.Observe(took.Seconds())
}

// ObserveAnalysisError counts an analysis failure under its error class.
func (m *Metrics) ObserveAnalysisError(err error) {
	m.AnalysisErrors.WithLabelValues(analysis.Class(err)).Inc()
}

// SetBreakerState records the Redis breaker state (0, 1 or 2).
func (m *Metrics) SetBreakerState(state int) {
	m.RedisBreakerState.Set(float64(state))
}
