package reporting

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/kbasefaqs/sr-acceptor/templates"
	"github.com/kbasefaqs/sr-acceptor/types"
	"github.com/kbasefaqs/sr-acceptor/ui"
)

//go:embed templates/*.md.tmpl
var templateFS embed.FS

// SummaryTemplate is the name of the embedded Markdown summary template
const SummaryTemplate = "summary.md.tmpl"

// ReportFormatter defines the interface for different report output formats
type ReportFormatter interface {
	Format(data *ReportData) (string, error)
}

// ReportWriter defines the interface for writing reports to various destinations
type ReportWriter interface {
	Write(content string) error
}

// FileWriter writes reports to a file
type FileWriter struct {
	path string
}

// NewFileWriter creates a new file writer
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path}
}

// Write writes the content to the file
func (fw *FileWriter) Write(content string) error {
	return os.WriteFile(fw.path, []byte(content), 0644)
}

// StdoutWriter writes reports to stdout
type StdoutWriter struct{}

// NewStdoutWriter creates a new stdout writer
func NewStdoutWriter() *StdoutWriter {
	return &StdoutWriter{}
}

// Write writes the content to stdout
func (sw *StdoutWriter) Write(content string) error {
	_, err := fmt.Print(content)
	return err
}

// MarkdownFormatter renders the summary.md document
type MarkdownFormatter struct {
	template *template.Template
}

// NewMarkdownFormatter creates a formatter from the embedded summary template
func NewMarkdownFormatter() (*MarkdownFormatter, error) {
	content, err := templateFS.ReadFile("templates/" + SummaryTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary template: %w", err)
	}
	return NewMarkdownFormatterFromTemplate(string(content))
}

// NewMarkdownFormatterFromTemplate creates a formatter from a custom template
func NewMarkdownFormatterFromTemplate(templateContent string) (*MarkdownFormatter, error) {
	tmpl, err := template.New("summary").Funcs(templates.FuncMap()).Parse(templateContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse summary template: %w", err)
	}
	return &MarkdownFormatter{template: tmpl}, nil
}

// Format renders the Markdown summary
func (mf *MarkdownFormatter) Format(data *ReportData) (string, error) {
	var buf bytes.Buffer
	if err := mf.template.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute summary template: %w", err)
	}
	return buf.String(), nil
}

// TableFormatter formats reports as console tables
type TableFormatter struct {
	showIndividualTests bool
	title               string
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(title string, showIndividualTests bool) *TableFormatter {
	return &TableFormatter{
		showIndividualTests: showIndividualTests,
		title:               title,
	}
}

// Format formats the report as a table with one row per screen reader and,
// optionally, one row per test result
func (tf *TableFormatter) Format(data *ReportData) (string, error) {
	var buf bytes.Buffer
	report := data.Report

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle(tf.title)

	t.AppendHeader(table.Row{
		"Type", "ID", "Avg Time", "Tests", "Passed", "Failed", "Violations", "Status",
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 120, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Avg Time", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Violations", Align: text.AlignRight},
	})

	for _, summary := range report.AdapterSummaries {
		t.AppendRow(table.Row{
			"Screen Reader",
			summary.ScreenReader,
			templates.FormatMillis(summary.AverageTestTimeMs),
			summary.TotalTests,
			summary.PassedTests,
			summary.FailedTests,
			summary.Violations,
			templates.StatusText(summary.FailedTests == 0),
		})

		if tf.showIndividualTests {
			results := report.PerAdapterResults[summary.ScreenReader]
			for i, r := range results {
				prefix := ui.TreeItemPrefix(i, len(results))
				t.AppendRow(table.Row{
					"Test",
					prefix + r.TestName,
					templates.FormatDuration(time.Duration(r.TimeTakenMs) * time.Millisecond),
					"-",
					boolToInt(r.Passed),
					boolToInt(!r.Passed),
					len(r.Violations),
					templates.StatusText(r.Passed),
				})
			}
		}
		t.AppendSeparator()
	}

	overallStatus := templates.StatusText(!report.HasFailures() && !report.Partial)
	switch {
	case report.HasFailures():
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case report.Partial:
		overallStatus = "HALTED"
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	var violations int
	for _, n := range report.ViolationsBySeverity {
		violations += n
	}
	t.AppendFooter(table.Row{
		"TOTAL",
		templates.FormatPercent(report.SuccessRate),
		templates.FormatMillis(report.AverageTestTimeMs),
		report.TotalTests,
		report.PassedTests,
		report.FailedTests,
		violations,
		overallStatus,
	})

	t.Render()
	return buf.String(), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// TextSummaryFormatter formats a short plain text summary for logs
type TextSummaryFormatter struct {
	includeDetails bool
}

// NewTextSummaryFormatter creates a new text summary formatter
func NewTextSummaryFormatter(includeDetails bool) *TextSummaryFormatter {
	return &TextSummaryFormatter{
		includeDetails: includeDetails,
	}
}

// Format formats the report data as a text summary
func (tsf *TextSummaryFormatter) Format(data *ReportData) (string, error) {
	var summary strings.Builder
	report := data.Report

	fmt.Fprintf(&summary, "SCREEN READER SUMMARY\n")
	fmt.Fprintf(&summary, "=====================\n")
	fmt.Fprintf(&summary, "Run ID: %s\n", data.RunID)
	fmt.Fprintf(&summary, "Time: %s\n", data.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&summary, "Duration: %s\n", templates.FormatDuration(data.Duration))
	fmt.Fprintf(&summary, "Digest: %s\n\n", data.Digest)

	if report.Partial {
		fmt.Fprintf(&summary, "PARTIAL RUN: halted by %s\n\n", report.HaltedBy)
	}

	fmt.Fprintf(&summary, "Results:\n")
	fmt.Fprintf(&summary, "  Total:        %d\n", report.TotalTests)
	fmt.Fprintf(&summary, "  Passed:       %d\n", report.PassedTests)
	fmt.Fprintf(&summary, "  Failed:       %d\n", report.FailedTests)
	fmt.Fprintf(&summary, "  Success rate: %s\n\n", templates.FormatPercent(report.SuccessRate))

	if failures := data.Failures(); len(failures) > 0 {
		fmt.Fprintf(&summary, "Failed tests:\n")
		for _, r := range failures {
			fmt.Fprintf(&summary, "  - [%s] %s\n", r.ScreenReader, r.TestName)
			if tsf.includeDetails {
				for _, v := range r.Violations {
					fmt.Fprintf(&summary, "      %s %s: %s\n", v.Severity, v.Rule, v.Description)
				}
			}
		}
		fmt.Fprintf(&summary, "\n")
	}

	fmt.Fprintf(&summary, "Recommendations:\n")
	for _, rec := range report.Recommendations {
		fmt.Fprintf(&summary, "  * %s\n", rec)
	}
	return summary.String(), nil
}

// ReportGenerator combines a formatter and a writer
type ReportGenerator struct {
	formatter ReportFormatter
	writer    ReportWriter
}

// NewReportGenerator creates a new report generator
func NewReportGenerator(formatter ReportFormatter, writer ReportWriter) *ReportGenerator {
	return &ReportGenerator{
		formatter: formatter,
		writer:    writer,
	}
}

// GenerateReport formats and writes the report
func (rg *ReportGenerator) GenerateReport(reportData *ReportData) error {
	content, err := rg.formatter.Format(reportData)
	if err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}

	if err := rg.writer.Write(content); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// GenerateFromResults aggregates results with a default aggregator, then
// formats and writes the report
func (rg *ReportGenerator) GenerateFromResults(results []types.TestResult, runID string, duration time.Duration) error {
	data, err := NewReportData(runID, Aggregate(results), duration)
	if err != nil {
		return err
	}
	return rg.GenerateReport(data)
}
