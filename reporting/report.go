package reporting

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/kbasefaqs/sr-acceptor/types"
)

// RunDirectoryPrefix is the prefix of every per-run output directory
const RunDirectoryPrefix = "testrun-"

// Output file names inside a run directory
const (
	ComparisonReportFilename = "comparison-report.json"
	DigestFilename           = "comparison-report.sha256"
	SummaryFilename          = "summary.md"
	IndividualReportSuffix   = "-results.json"
)

// ReportData contains everything a formatter or sink needs to render a run
type ReportData struct {
	RunID     string
	Timestamp time.Time
	Duration  time.Duration
	Digest    string
	Report    *types.ComparisonReport
}

// NewReportData wraps a finished report and computes its digest
func NewReportData(runID string, report *types.ComparisonReport, duration time.Duration) (*ReportData, error) {
	if report == nil {
		return nil, fmt.Errorf("report cannot be nil")
	}
	digest, err := Digest(report)
	if err != nil {
		return nil, err
	}
	return &ReportData{
		RunID:     runID,
		Timestamp: time.Now(),
		Duration:  duration,
		Digest:    digest,
		Report:    report,
	}, nil
}

// Failures returns the failed results in report order
func (d *ReportData) Failures() []types.TestResult {
	var out []types.TestResult
	for _, r := range d.Report.AllResults() {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// ViolationCount returns the number of violations of the given severity
func (d *ReportData) ViolationCount(severity string) int {
	return d.Report.ViolationsBySeverity[types.Severity(severity)]
}

// MarshalReport encodes a report as indented JSON
func MarshalReport(report *types.ComparisonReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal comparison report: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteJSON writes a report as indented JSON
func WriteJSON(w io.Writer, report *types.ComparisonReport) error {
	data, err := MarshalReport(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadJSON decodes a report written by WriteJSON
func ReadJSON(r io.Reader) (*types.ComparisonReport, error) {
	var report types.ComparisonReport
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode comparison report: %w", err)
	}
	return &report, nil
}

// Digest returns the sha256 hex digest of the RFC 8785 canonical JSON form of
// the report. Equal reports always have equal digests.
func Digest(report *types.ComparisonReport) (string, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal comparison report: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize comparison report: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
