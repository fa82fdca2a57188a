package bootstrap

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/care-coordinator/internal/conversation"
	"github.com/wolfman30/care-coordinator/internal/observability/metrics"
)

// BuildMetrics creates a dedicated registry holding runtime collectors, the
// model-call vectors and the pipeline counters, and the /metrics handler for it.
func BuildMetrics() (http.Handler, *metrics.PipelineMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	conversation.RegisterMetrics(reg)
	pm := metrics.NewPipelineMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), pm
}
