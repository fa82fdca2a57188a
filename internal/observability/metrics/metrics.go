package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for conversation turns and tool dispatch.
type PipelineMetrics struct {
	turnsTotal     *prometheus.CounterVec
	toolCallsTotal *prometheus.CounterVec
	turnLatency    *prometheus.HistogramVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "care",
			Subsystem: "pipeline",
			Name:      "turns_total",
			Help:      "Total conversation turns by path taken",
		}, []string{"path"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "care",
			Subsystem: "pipeline",
			Name:      "tool_calls_total",
			Help:      "Total tool invocations requested by the model",
		}, []string{"tool", "outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "care",
			Subsystem: "pipeline",
			Name:      "turn_latency_seconds",
			Help:      "Latency of a full conversation turn",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		}, []string{"path"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.toolCallsTotal, m.turnLatency)
	return m
}

// ObserveTurn records a finished turn. path is "direct", "tool" or "error".
func (m *PipelineMetrics) ObserveTurn(path string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(path).Inc()
	m.turnLatency.WithLabelValues(path).Observe(seconds)
}

// ObserveToolCall records one dispatched tool. outcome is "ok", "rejected" or "error".
func (m *PipelineMetrics) ObserveToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.toolCallsTotal.WithLabelValues(tool, outcome).Inc()
}
