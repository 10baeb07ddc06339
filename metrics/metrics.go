package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kbasefaqs/sr-acceptor/types"
)

const (
	MetricsNamespace = "sra"

	ResultPass = "pass"
	ResultFail = "fail"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	casesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "cases_total",
		Help:      "Count of executed test cases",
	}, []string{
		"screen_reader",
		"suite",
		"result",
	})

	caseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "case_duration_seconds",
		Help:      "Time a screen reader took to announce a test case",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{
		"screen_reader",
	})

	violationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "violations_total",
		Help:      "Count of accessibility violations",
	}, []string{
		"screen_reader",
		"rule",
		"severity",
	})

	infrastructureErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "infrastructure_errors_total",
		Help:      "Count of cases that could not be driven through the screen reader",
	}, []string{
		"screen_reader",
		"rule",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of screen reader runs",
	}, []string{
		"run_id",
		"result",
	})

	runSuccessRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_success_rate",
		Help:      "Percentage of passed cases in a run",
	}, []string{
		"run_id",
	})

	runTestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_tests_total",
		Help:      "Total number of cases per run",
	}, []string{
		"run_id",
		"result",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall clock duration of a run",
	}, []string{
		"run_id",
	})

	runsHalted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_halted_total",
		Help:      "Count of runs halted before their schedule completed",
	}, []string{
		"reason",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordCase records a single settled (screen reader, case) result
func RecordCase(result *types.TestResult) {
	if result == nil {
		log.Error("RecordCase - nil result")
		return
	}
	outcome := ResultPass
	if !result.Passed {
		outcome = ResultFail
	}
	kind := result.ScreenReader.Slug()
	if Debug {
		log.Debug("metric inc",
			"m", "cases_total",
			"screen_reader", kind,
			"suite", result.Suite,
			"test", result.TestName,
			"result", outcome)
	}
	casesTotal.WithLabelValues(kind, result.Suite, outcome).Inc()
	caseDuration.WithLabelValues(kind).Observe(float64(result.TimeTakenMs) / 1000)
	for _, v := range result.Violations {
		violationsTotal.WithLabelValues(kind, v.Rule, string(v.Severity)).Inc()
		if v.IsInfrastructure() {
			infrastructureErrorsTotal.WithLabelValues(kind, v.Rule).Inc()
		}
	}
}

// RecordRun records the totals of a finished run
func RecordRun(
	runID string,
	result string,
	total int,
	passed int,
	failed int,
	successRate float64,
	duration time.Duration,
) {
	runResults.WithLabelValues(runID, result).Set(1)
	runTestsTotal.WithLabelValues(runID, ResultPass).Add(float64(passed))
	runTestsTotal.WithLabelValues(runID, ResultFail).Add(float64(failed))
	runSuccessRate.WithLabelValues(runID).Set(successRate)
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
	if Debug {
		log.Debug("metric set", "m", "run_results", "run_id", runID, "result", result, "total", total)
	}
}

// RecordHalt records a run that stopped before finishing its schedule
func RecordHalt(reason string) {
	runsHalted.WithLabelValues(reason).Inc()
}
