package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/c360studio/goldenthread/trace"
)

// PushMetrics publishes run metrics to a Prometheus push gateway, so CI
// runs leave a queryable trail without a long-lived exporter. A push
// failure is reported to the caller but should not fail the run.
func PushMetrics(gatewayURL string, result *trace.ValidationResult) error {
	registry := prometheus.NewRegistry()

	pass := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "goldenthread_run_pass",
		Help: "1 when the validation run passed, 0 otherwise.",
	})
	coverage := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "goldenthread_coverage_percent",
		Help: "Requirement coverage percentage across all services.",
	})
	diagnostics := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "goldenthread_diagnostics",
		Help: "Diagnostic count by severity.",
	}, []string{"severity"})
	serviceCoverage := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "goldenthread_service_coverage_percent",
		Help: "Requirement coverage percentage per service.",
	}, []string{"service"})

	registry.MustRegister(pass, coverage, diagnostics, serviceCoverage)

	if result.Pass {
		pass.Set(1)
	}
	coverage.Set(result.Coverage.Percentage)
	diagnostics.WithLabelValues(string(trace.SeverityBlocking)).Set(float64(result.BlockingCount()))
	diagnostics.WithLabelValues(string(trace.SeverityAdvisory)).Set(float64(result.AdvisoryCount()))
	for _, svc := range result.Services {
		serviceCoverage.WithLabelValues(svc.Service).Set(svc.Coverage.Percentage)
	}

	err := push.New(gatewayURL, "goldenthread").
		Grouping("run_id", result.RunID).
		Gatherer(registry).
		Push()
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
