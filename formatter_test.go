package sra

import (
	"bytes"
	"testing"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbasefaqs/sr-acceptor/reporting"
)

// TestConsoleResultFormatter_FormatResults tests the basic functionality of the formatter
func TestConsoleResultFormatter_FormatResults(t *testing.T) {
	result := runResult("format-run", 2, 1, "")
	data, err := reporting.NewReportData(result.RunID, result.Report, 150*time.Millisecond)
	require.NoError(t, err)

	var out bytes.Buffer
	formatter := NewConsoleResultFormatterWithWriter(log.New(), &out)
	require.NoError(t, formatter.FormatResults(data))

	content := stripansi.Strip(out.String())
	assert.Contains(t, content, "Screen Reader Results")
	assert.Contains(t, content, "case-a")
	assert.Contains(t, content, "case-c")
	assert.Contains(t, content, "Run ID: format-run")
	assert.Contains(t, content, "[NVDA] case-c")
	assert.Contains(t, content, "Report digest: "+data.Digest)
}

// TestConsoleResultFormatter_FormatResults_EmptyResult tests formatting an empty result
func TestConsoleResultFormatter_FormatResults_EmptyResult(t *testing.T) {
	result := runResult("empty-run", 0, 0, "")
	data, err := reporting.NewReportData(result.RunID, result.Report, 0)
	require.NoError(t, err)

	var out bytes.Buffer
	formatter := NewConsoleResultFormatterWithWriter(log.New(), &out)
	require.NoError(t, formatter.FormatResults(data))
	assert.NotContains(t, out.String(), "Failed tests:")
}

// TestConsoleResultFormatter_FormatResults_Halted checks partial runs are called out
func TestConsoleResultFormatter_FormatResults_Halted(t *testing.T) {
	result := runResult("halted-run", 1, 1, "NVDA/case-b")
	data, err := reporting.NewReportData(result.RunID, result.Report, time.Second)
	require.NoError(t, err)

	var out bytes.Buffer
	formatter := NewConsoleResultFormatterWithWriter(log.New(), &out)
	require.NoError(t, formatter.FormatResults(data))
	assert.Contains(t, stripansi.Strip(out.String()), "PARTIAL RUN: halted by NVDA/case-b")
}

// TestConsoleResultFormatter_FormatResults_Nil tests that missing data is rejected
func TestConsoleResultFormatter_FormatResults_Nil(t *testing.T) {
	formatter := NewConsoleResultFormatterWithWriter(log.New(), &bytes.Buffer{})
	assert.Error(t, formatter.FormatResults(nil))
}
