package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/kbasefaqs/sr-acceptor/types"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name: "simple error",
			err:  errors.New("test error"),
		},
		{
			name: "error with special chars",
			err:  errors.New("test@error#123"),
		},
		{
			name: "error with multiple spaces",
			err:  errors.New("test   error"),
		},
	}

	validLabelRegex := regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Regexp(t, validLabelRegex, errToLabel(tt.err))
		})
	}
}

func TestRecordError(t *testing.T) {
	before := testutil.ToFloat64(errorsTotal.WithLabelValues("test_error"))
	RecordError("test_error")
	assert.Equal(t, before+1, testutil.ToFloat64(errorsTotal.WithLabelValues("test_error")))

	// nil errors are ignored
	assert.NotPanics(t, func() { RecordErrorDetails("test", nil) })
	RecordErrorDetails("test", errors.New("sample error"))
	assert.Equal(t, float64(1), testutil.ToFloat64(errorsTotal.WithLabelValues("test.sample_error")))
}

func TestRecordCase(t *testing.T) {
	passed := &types.TestResult{TestName: "a", Suite: "metrics-aria", ScreenReader: types.ScreenReaderNVDA, Passed: true, TimeTakenMs: 120}
	failed := types.NewInfrastructureFailure(types.ScreenReaderNVDA, types.TestCase{Name: "b", Target: "#b"}, types.RuleTimeout, nil, 30000)
	failed.Suite = "metrics-aria"

	RecordCase(passed)
	RecordCase(failed)
	RecordCase(nil)

	assert.Equal(t, float64(1), testutil.ToFloat64(casesTotal.WithLabelValues("nvda", "metrics-aria", ResultPass)))
	assert.Equal(t, float64(1), testutil.ToFloat64(casesTotal.WithLabelValues("nvda", "metrics-aria", ResultFail)))
	assert.GreaterOrEqual(t, testutil.ToFloat64(infrastructureErrorsTotal.WithLabelValues("nvda", types.RuleTimeout)), float64(1))
	assert.GreaterOrEqual(t, testutil.ToFloat64(violationsTotal.WithLabelValues("nvda", types.RuleTimeout, "critical")), float64(1))
}

func TestRecordRun(t *testing.T) {
	RecordRun("run-metrics-test", "fail", 4, 3, 1, 75, time.Second)
	assert.Equal(t, float64(1), testutil.ToFloat64(runResults.WithLabelValues("run-metrics-test", "fail")))
	assert.Equal(t, float64(75), testutil.ToFloat64(runSuccessRate.WithLabelValues("run-metrics-test")))
	assert.Equal(t, float64(3), testutil.ToFloat64(runTestsTotal.WithLabelValues("run-metrics-test", ResultPass)))

	RecordHalt("interrupted")
	assert.GreaterOrEqual(t, testutil.ToFloat64(runsHalted.WithLabelValues("interrupted")), float64(1))
}
