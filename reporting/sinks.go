package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kbasefaqs/sr-acceptor/types"
)

// RunDirectory returns the output directory of a run
func RunDirectory(baseDir, runID string) string {
	return filepath.Join(baseDir, RunDirectoryPrefix+runID)
}

func ensureRunDirectory(baseDir, runID string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("runID cannot be empty")
	}
	dir := RunDirectory(baseDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return dir, nil
}

// ComparisonReportSink writes comparison-report.json and its digest
type ComparisonReportSink struct {
	baseDir string
}

// NewComparisonReportSink creates a sink writing below baseDir
func NewComparisonReportSink(baseDir string) *ComparisonReportSink {
	return &ComparisonReportSink{baseDir: baseDir}
}

// Consume is a no-op; the comparison report is built from the whole run
func (s *ComparisonReportSink) Consume(result *types.TestResult, runID string) error {
	return nil
}

// Complete writes the report and its digest
func (s *ComparisonReportSink) Complete(data *ReportData) error {
	dir, err := ensureRunDirectory(s.baseDir, data.RunID)
	if err != nil {
		return err
	}
	content, err := MarshalReport(data.Report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, ComparisonReportFilename), content, 0644); err != nil {
		return fmt.Errorf("failed to write comparison report: %w", err)
	}
	digestLine := fmt.Sprintf("%s  %s\n", data.Digest, ComparisonReportFilename)
	if err := os.WriteFile(filepath.Join(dir, DigestFilename), []byte(digestLine), 0644); err != nil {
		return fmt.Errorf("failed to write report digest: %w", err)
	}
	return nil
}

// IndividualReport is the per screen reader report file
type IndividualReport struct {
	RunID        string                 `json:"runId"`
	ScreenReader types.ScreenReaderKind `json:"screenReader"`
	Summary      types.AdapterSummary   `json:"summary"`
	Results      []types.TestResult     `json:"results"`
}

// IndividualReportSink writes one <kind>-results.json file per screen reader
type IndividualReportSink struct {
	baseDir string

	mu      sync.Mutex
	results map[string]map[types.ScreenReaderKind][]types.TestResult
}

// NewIndividualReportSink creates a sink writing below baseDir
func NewIndividualReportSink(baseDir string) *IndividualReportSink {
	return &IndividualReportSink{
		baseDir: baseDir,
		results: make(map[string]map[types.ScreenReaderKind][]types.TestResult),
	}
}

// Consume collects a settled result for its screen reader
func (s *IndividualReportSink) Consume(result *types.TestResult, runID string) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.results[runID] == nil {
		s.results[runID] = make(map[types.ScreenReaderKind][]types.TestResult)
	}
	s.results[runID][result.ScreenReader] = append(s.results[runID][result.ScreenReader], *result)
	return nil
}

// Complete writes the collected results. Screen readers without consumed
// results fall back to the report's per adapter results.
func (s *IndividualReportSink) Complete(data *ReportData) error {
	dir, err := ensureRunDirectory(s.baseDir, data.RunID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	collected := s.results[data.RunID]
	delete(s.results, data.RunID)
	s.mu.Unlock()

	for _, kind := range data.Report.ScreenReadersUsed {
		results, ok := collected[kind]
		if !ok {
			results = data.Report.PerAdapterResults[kind]
		}
		summary, _ := data.Report.Summary(kind)
		content, err := json.MarshalIndent(IndividualReport{
			RunID:        data.RunID,
			ScreenReader: kind,
			Summary:      summary,
			Results:      results,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal %s results: %w", kind, err)
		}
		path := filepath.Join(dir, kind.Slug()+IndividualReportSuffix)
		if err := os.WriteFile(path, append(content, '\n'), 0644); err != nil {
			return fmt.Errorf("failed to write %s results: %w", kind, err)
		}
	}
	return nil
}

// MarkdownSummarySink writes summary.md
type MarkdownSummarySink struct {
	baseDir   string
	formatter *MarkdownFormatter
}

// NewMarkdownSummarySink creates a sink writing below baseDir
func NewMarkdownSummarySink(baseDir string) (*MarkdownSummarySink, error) {
	formatter, err := NewMarkdownFormatter()
	if err != nil {
		return nil, err
	}
	return &MarkdownSummarySink{baseDir: baseDir, formatter: formatter}, nil
}

// Consume is a no-op; the summary is rendered from the report
func (s *MarkdownSummarySink) Consume(result *types.TestResult, runID string) error {
	return nil
}

// Complete renders and writes summary.md
func (s *MarkdownSummarySink) Complete(data *ReportData) error {
	dir, err := ensureRunDirectory(s.baseDir, data.RunID)
	if err != nil {
		return err
	}
	return NewReportGenerator(s.formatter, NewFileWriter(filepath.Join(dir, SummaryFilename))).GenerateReport(data)
}

// TableReporter prints the console results table
type TableReporter struct {
	formatter *TableFormatter
}

// NewTableReporter creates a new table reporter
func NewTableReporter(title string, showIndividualTests bool) *TableReporter {
	return &TableReporter{
		formatter: NewTableFormatter(title, showIndividualTests),
	}
}

// GenerateTable returns the table as a string
func (tr *TableReporter) GenerateTable(data *ReportData) (string, error) {
	return tr.formatter.Format(data)
}

// PrintTable prints the table to stdout
func (tr *TableReporter) PrintTable(data *ReportData) error {
	return NewReportGenerator(tr.formatter, NewStdoutWriter()).GenerateReport(data)
}
