package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbasefaqs/sr-acceptor/reporting"
	"github.com/kbasefaqs/sr-acceptor/types"
)

func sampleResults() []types.TestResult {
	return []types.TestResult{
		{
			TestName:             "skip-link",
			Suite:                "navigation",
			ScreenReader:         types.ScreenReaderNVDA,
			Passed:               true,
			ActualAnnouncement:   "Skip to results, link",
			ExpectedAnnouncement: "Skip to results, link",
			TimeTakenMs:          180,
		},
		{
			TestName:             "submit-disabled",
			Suite:                "forms",
			ScreenReader:         types.ScreenReaderVoiceOver,
			Passed:               false,
			ActualAnnouncement:   "Send feedback, button",
			ExpectedAnnouncement: "Send feedback, button, unavailable",
			TimeTakenMs:          1250,
			Violations: []types.Violation{{
				Rule:          types.RuleAnnouncementMismatch,
				Severity:      types.SeveritySerious,
				Element:       "#feedback-submit",
				Description:   "expected announcement to include unavailable",
				Suggestion:    "Set aria-disabled on the button",
				WCAGCriterion: "4.1.2",
			}},
		},
	}
}

func completeRun(t *testing.T, l *FileLogger, runID string, results []types.TestResult) *reporting.ReportData {
	t.Helper()
	for i := range results {
		require.NoError(t, l.LogTestResult(&results[i], runID))
	}
	report := reporting.NewAggregator().
		WithAdapterOrder(types.ScreenReaderNVDA, types.ScreenReaderVoiceOver).
		Aggregate(results)
	data, err := reporting.NewReportData(runID, report, 2*time.Second)
	require.NoError(t, err)
	require.NoError(t, l.Complete(data))
	return data
}

func TestNewFileLogger(t *testing.T) {
	_, err := NewFileLogger("", Options{})
	require.Error(t, err)

	tests := []struct {
		name  string
		opts  Options
		sinks []string
	}{
		{
			name:  "default sinks",
			sinks: []string{"AllLogsFileSink", "FailedCaseFileSink", "MarkdownSummarySink"},
		},
		{
			name:  "all reports",
			opts:  Options{ComparisonReport: true, IndividualReports: true},
			sinks: []string{"AllLogsFileSink", "FailedCaseFileSink", "MarkdownSummarySink", "ComparisonReportSink", "IndividualReportSink"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewFileLogger(t.TempDir(), tt.opts)
			require.NoError(t, err)
			assert.Len(t, l.sinks, len(tt.sinks))
			for _, name := range tt.sinks {
				_, ok := l.GetSinkByType(name)
				assert.True(t, ok, name)
			}
		})
	}
}

func TestFileLoggerWritesRunDirectory(t *testing.T) {
	baseDir := t.TempDir()
	l, err := NewFileLogger(baseDir, Options{ComparisonReport: true, IndividualReports: true})
	require.NoError(t, err)

	data := completeRun(t, l, "run-1", sampleResults())
	runDir := filepath.Join(baseDir, "testrun-run-1")

	allLogs, err := os.ReadFile(filepath.Join(runDir, AllLogsFilename))
	require.NoError(t, err)
	assert.Contains(t, string(allLogs), "TEST: skip-link")
	assert.Contains(t, string(allLogs), "TEST: submit-disabled")
	assert.Contains(t, string(allLogs), "[serious] announcement-mismatch (WCAG 4.1.2)")
	assert.Contains(t, string(allLogs), "Suggestion: Set aria-disabled on the button")
	assert.Less(t, strings.Index(string(allLogs), "skip-link"), strings.Index(string(allLogs), "submit-disabled"))

	failed, err := os.ReadDir(filepath.Join(runDir, FailedDirname))
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "voiceover-submit-disabled.log", failed[0].Name())

	summary, err := os.ReadFile(filepath.Join(runDir, reporting.SummaryFilename))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "run-1")

	f, err := os.Open(filepath.Join(runDir, reporting.ComparisonReportFilename))
	require.NoError(t, err)
	defer f.Close()
	report, err := reporting.ReadJSON(f)
	require.NoError(t, err)
	assert.Equal(t, data.Report.TotalTests, report.TotalTests)

	for _, name := range []string{"nvda-results.json", "voiceover-results.json"} {
		_, err := os.Stat(filepath.Join(runDir, name))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(runDir, "jaws-results.json"))
	assert.True(t, os.IsNotExist(err))

	// writers of a completed run are released
	assert.Empty(t, l.asyncWriters)
}

func TestFileLoggerKeepsRunsApart(t *testing.T) {
	baseDir := t.TempDir()
	l, err := NewFileLogger(baseDir, Options{})
	require.NoError(t, err)

	results := sampleResults()
	completeRun(t, l, "first", results[:1])
	completeRun(t, l, "second", results[1:])

	first, err := os.ReadFile(filepath.Join(baseDir, "testrun-first", AllLogsFilename))
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(baseDir, "testrun-second", AllLogsFilename))
	require.NoError(t, err)
	assert.Contains(t, string(first), "skip-link")
	assert.NotContains(t, string(first), "submit-disabled")
	assert.Contains(t, string(second), "submit-disabled")

	_, err = os.Stat(filepath.Join(baseDir, "testrun-first", reporting.ComparisonReportFilename))
	assert.True(t, os.IsNotExist(err))
}

func TestFileLoggerRequiresRunID(t *testing.T) {
	l, err := NewFileLogger(t.TempDir(), Options{})
	require.NoError(t, err)

	results := sampleResults()
	require.Error(t, l.LogTestResult(&results[0], ""))
	require.Error(t, l.Complete(nil))
	_, err = l.GetDirectoryForRunID("")
	require.Error(t, err)
}

func TestFileLoggerCompleteReportsCloseErrors(t *testing.T) {
	l, err := NewFileLogger(t.TempDir(), Options{})
	require.NoError(t, err)

	runID := "close-error"
	results := sampleResults()
	require.NoError(t, l.LogTestResult(&results[0], runID))

	allLogs, err := l.GetAllLogsFileForRunID(runID)
	require.NoError(t, err)
	writer, ok := l.asyncWriters[allLogs]
	require.True(t, ok)
	require.NoError(t, writer.file.Close())

	report := reporting.Aggregate(results[:1])
	data, err := reporting.NewReportData(runID, report, time.Second)
	require.NoError(t, err)

	err = l.Complete(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), AllLogsFilename)
	assert.Empty(t, l.asyncWriters, "writers must be released even when closing fails")
}

func TestAsyncFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	af, err := NewAsyncFile(path)
	require.NoError(t, err)

	for i := 0; i < 250; i++ {
		require.NoError(t, af.Write([]byte("x")))
	}
	require.NoError(t, af.Close())
	require.Error(t, af.Write([]byte("late")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, content, 250)
}

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"nvda-skip-link", "nvda-skip-link"},
		{"jaws-a/b", "jaws-a_b"},
		{"voiceover-x: y?", "voiceover-x__y_"},
		{"nvda-wait...", "nvda-wait"},
		{`jaws-"quoted"<tag>|*`, "jaws-_quoted__tag___"},
		{`nvda-back\slash name`, "nvda-back_slash_name"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeFilename(tt.in), tt.in)
	}
}

func TestFormatResult(t *testing.T) {
	result := &types.TestResult{
		TestName:             "submit-disabled",
		ScreenReader:         types.ScreenReaderJAWS,
		Suite:                "forms",
		ExpectedAnnouncement: "Send feedback, button, unavailable",
		ActualAnnouncement:   "Send feedback, button",
		TimeTakenMs:          1200,
		Violations: []types.Violation{{
			Rule:          types.RuleAnnouncementMismatch,
			Severity:      types.SeveritySerious,
			Description:   "state not announced",
			Suggestion:    "Set aria-disabled",
			WCAGCriterion: "4.1.2",
		}},
	}

	out := formatResult(result)
	assert.Contains(t, out, "│ TEST: submit-disabled")
	assert.Contains(t, out, "│ Status:        FAIL")
	assert.Contains(t, out, "│ Screen reader: JAWS")
	assert.Contains(t, out, "│ Duration:      1.2s")
	assert.Contains(t, out, "EXPECTED: Send feedback, button, unavailable")
	assert.Contains(t, out, "[serious] "+types.RuleAnnouncementMismatch+" (WCAG 4.1.2)")
	assert.Contains(t, out, "    Suggestion: Set aria-disabled")
}
