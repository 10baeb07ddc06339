package sra

import (
	"github.com/kbasefaqs/sr-acceptor/metrics"
	"github.com/kbasefaqs/sr-acceptor/runner"
)

// Run level results recorded in metrics
const (
	RunResultPass   = "pass"
	RunResultFail   = "fail"
	RunResultHalted = "halted"
)

// MetricsReporter is responsible for reporting metrics from test results.
type MetricsReporter interface {
	ReportResults(result *runner.RunResult)
}

// DefaultMetricsReporter implements the MetricsReporter interface.
type DefaultMetricsReporter struct{}

// NewDefaultMetricsReporter creates a new DefaultMetricsReporter.
func NewDefaultMetricsReporter() *DefaultMetricsReporter {
	return &DefaultMetricsReporter{}
}

// ReportResults reports the run to metrics systems.
func (r *DefaultMetricsReporter) ReportResults(result *runner.RunResult) {
	if result == nil || result.Report == nil {
		return
	}
	report := result.Report
	metrics.RecordRun(
		result.RunID,
		runResultLabel(result),
		report.TotalTests,
		report.PassedTests,
		report.FailedTests,
		report.SuccessRate,
		result.Duration,
	)
}

func runResultLabel(result *runner.RunResult) string {
	switch {
	case result.Halted:
		return RunResultHalted
	case result.Report.FailedTests > 0:
		return RunResultFail
	default:
		return RunResultPass
	}
}
