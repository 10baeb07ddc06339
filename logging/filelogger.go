package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kbasefaqs/sr-acceptor/reporting"
	"github.com/kbasefaqs/sr-acceptor/templates"
	"github.com/kbasefaqs/sr-acceptor/types"
	"github.com/kbasefaqs/sr-acceptor/ui"
)

const (
	AllLogsFilename = "all.log"
	FailedDirname   = "failed"
)

// ResultSink is an interface for different ways of consuming test results
type ResultSink interface {
	// Consume processes a single test result as soon as it settles
	Consume(result *types.TestResult, runID string) error
	// Complete is called once with the finished report of the run
	Complete(data *reporting.ReportData) error
}

// Options selects the optional report files
type Options struct {
	ComparisonReport  bool
	IndividualReports bool
}

// FileLogger writes the output of every run to <baseDir>/testrun-<runID>
type FileLogger struct {
	baseDir      string                // Base directory for all runs
	mu           sync.Mutex            // Protects concurrent file operations
	sinks        []ResultSink          // Collection of result consumers
	asyncWriters map[string]*AsyncFile // Map of async file writers
}

// AsyncFile provides non-blocking file writing capabilities
type AsyncFile struct {
	file    *os.File
	queue   chan []byte
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewAsyncFile creates a new AsyncFile for non-blocking writes
func NewAsyncFile(path string) (*AsyncFile, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", path, err)
	}

	af := &AsyncFile{
		file:  file,
		queue: make(chan []byte, 100),
	}

	af.wg.Add(1)
	go af.processQueue()

	return af, nil
}

// Write queues data to be written asynchronously
func (af *AsyncFile) Write(data []byte) error {
	af.mu.Lock()
	defer af.mu.Unlock()

	if af.stopped {
		return fmt.Errorf("async file is closed")
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	af.queue <- dataCopy
	return nil
}

func (af *AsyncFile) processQueue() {
	defer af.wg.Done()

	for data := range af.queue {
		if _, err := af.file.Write(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing to file: %v\n", err)
		}
	}
}

// Close stops the async writer and closes the file
func (af *AsyncFile) Close() error {
	af.mu.Lock()
	if !af.stopped {
		af.stopped = true
		close(af.queue)
	}
	af.mu.Unlock()

	af.wg.Wait()
	return af.file.Close()
}

// NewFileLogger creates a FileLogger. all.log, the failed/ case files and
// summary.md are always written; opts adds the JSON reports.
func NewFileLogger(baseDir string, opts Options) (*FileLogger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", baseDir, err)
	}

	logger := &FileLogger{
		baseDir:      baseDir,
		asyncWriters: make(map[string]*AsyncFile),
	}
	logger.sinks = append(logger.sinks,
		&AllLogsFileSink{logger: logger},
		&FailedCaseFileSink{logger: logger},
	)

	markdownSink, err := reporting.NewMarkdownSummarySink(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary sink: %w", err)
	}
	logger.sinks = append(logger.sinks, markdownSink)

	if opts.ComparisonReport {
		logger.sinks = append(logger.sinks, reporting.NewComparisonReportSink(baseDir))
	}
	if opts.IndividualReports {
		logger.sinks = append(logger.sinks, reporting.NewIndividualReportSink(baseDir))
	}

	return logger, nil
}

// getAsyncWriter gets or creates an AsyncFile for the given path
func (l *FileLogger) getAsyncWriter(path string) (*AsyncFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if writer, exists := l.asyncWriters[path]; exists {
		return writer, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
	}
	writer, err := NewAsyncFile(path)
	if err != nil {
		return nil, err
	}
	l.asyncWriters[path] = writer
	return writer, nil
}

// closeWriters closes the async writers below dir. Every writer is closed
// even when an earlier one fails.
func (l *FileLogger) closeWriters(dir string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for path, writer := range l.asyncWriters {
		if strings.HasPrefix(path, dir+string(filepath.Separator)) {
			if err := writer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close %s: %w", path, err))
			}
			delete(l.asyncWriters, path)
		}
	}
	return errors.Join(errs...)
}

// GetDirectoryForRunID returns the output directory of a run
func (l *FileLogger) GetDirectoryForRunID(runID string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("runID cannot be empty")
	}
	return reporting.RunDirectory(l.baseDir, runID), nil
}

// GetAllLogsFileForRunID returns the path to the all.log file for the given runID
func (l *FileLogger) GetAllLogsFileForRunID(runID string) (string, error) {
	dir, err := l.GetDirectoryForRunID(runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AllLogsFilename), nil
}

// GetFailedDirForRunID returns the failed directory for a specific runID
func (l *FileLogger) GetFailedDirForRunID(runID string) (string, error) {
	dir, err := l.GetDirectoryForRunID(runID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FailedDirname), nil
}

// GetBaseDir returns the directory holding every run
func (l *FileLogger) GetBaseDir() string {
	return l.baseDir
}

// LogTestResult processes a test result through all registered sinks
func (l *FileLogger) LogTestResult(result *types.TestResult, runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	for _, sink := range l.sinks {
		if err := sink.Consume(result, runID); err != nil {
			return fmt.Errorf("error in sink: %w", err)
		}
	}
	return nil
}

// Complete finalizes all sinks for the run and closes its file writers
func (l *FileLogger) Complete(data *reporting.ReportData) error {
	if data == nil || data.RunID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	dir, _ := l.GetDirectoryForRunID(data.RunID)

	var sinkErr error
	for _, sink := range l.sinks {
		if err := sink.Complete(data); err != nil {
			sinkErr = fmt.Errorf("error completing sink: %w", err)
			break
		}
	}
	return errors.Join(sinkErr, l.closeWriters(dir))
}

// GetSinkByType returns a sink of the specified type if it exists
// The type is determined by the name of the sink's struct
func (l *FileLogger) GetSinkByType(sinkType string) (ResultSink, bool) {
	for _, sink := range l.sinks {
		typeName := fmt.Sprintf("%T", sink)
		if idx := strings.LastIndex(typeName, "."); idx >= 0 {
			typeName = typeName[idx+1:]
		}
		typeName = strings.TrimPrefix(typeName, "*")

		if typeName == sinkType {
			return sink, true
		}
	}
	return nil, false
}

// safeFilename converts a string to a safe filename by replacing problematic characters
func safeFilename(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, ":", "_")
	s = strings.ReplaceAll(s, "*", "_")
	s = strings.ReplaceAll(s, "?", "_")
	s = strings.ReplaceAll(s, "\"", "_")
	s = strings.ReplaceAll(s, "<", "_")
	s = strings.ReplaceAll(s, ">", "_")
	s = strings.ReplaceAll(s, "|", "_")
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "...", "")
	return s
}

// caseFilename names the log file of a failed case
func caseFilename(result *types.TestResult) string {
	return safeFilename(result.ScreenReader.Slug()+"-"+result.TestName) + ".log"
}

// AllLogsFileSink writes all test results to a single "all.log" file
type AllLogsFileSink struct {
	logger *FileLogger
}

// Consume writes a test result to the all.log file
func (s *AllLogsFileSink) Consume(result *types.TestResult, runID string) error {
	allLogsFile, err := s.logger.GetAllLogsFileForRunID(runID)
	if err != nil {
		return err
	}
	writer, err := s.logger.getAsyncWriter(allLogsFile)
	if err != nil {
		return err
	}
	return writer.Write([]byte(formatResult(result)))
}

// Complete is a no-op for AllLogsFileSink
func (s *AllLogsFileSink) Complete(data *reporting.ReportData) error {
	return nil
}

// formatResult renders one result as a boxed block
func formatResult(result *types.TestResult) string {
	var content strings.Builder

	fmt.Fprintf(&content, "\n")
	content.WriteString(ui.BuildBox("TEST: "+result.TestName, []string{
		"Status:        " + templates.StatusText(result.Passed),
		"Screen reader: " + string(result.ScreenReader),
		"Suite:         " + result.Suite,
		"Duration:      " + templates.FormatDuration(time.Duration(result.TimeTakenMs)*time.Millisecond),
		"Time:          " + time.Now().Format(time.RFC3339),
	}, ui.DefaultBoxWidth))
	fmt.Fprintf(&content, "\n")

	fmt.Fprintf(&content, "EXPECTED: %s\n", result.ExpectedAnnouncement)
	fmt.Fprintf(&content, "ACTUAL:   %s\n", result.ActualAnnouncement)

	if len(result.Violations) > 0 {
		fmt.Fprintf(&content, "\nVIOLATIONS:\n")
		fmt.Fprintf(&content, "~~~~~~~~~~~\n")
		for _, v := range result.Violations {
			fmt.Fprintf(&content, "  [%s] %s (WCAG %s)\n", v.Severity, v.Rule, v.WCAGCriterion)
			fmt.Fprintf(&content, "%s\n", indentText(v.Description, "    "))
			if v.Suggestion != "" {
				fmt.Fprintf(&content, "%s\n", indentText("Suggestion: "+v.Suggestion, "    "))
			}
		}
	}

	fmt.Fprintf(&content, "\n")
	return content.String()
}

// indentText adds indentation to each line of text
func indentText(text, indent string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = indent + line
		}
	}
	return strings.Join(lines, "\n")
}

// FailedCaseFileSink writes one file per failed case to the failed directory
type FailedCaseFileSink struct {
	logger *FileLogger
}

// Consume writes the log of a failed result; passing results are skipped
func (s *FailedCaseFileSink) Consume(result *types.TestResult, runID string) error {
	if result.Passed {
		return nil
	}
	failedDir, err := s.logger.GetFailedDirForRunID(runID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(failedDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", failedDir, err)
	}
	path := filepath.Join(failedDir, caseFilename(result))
	if err := os.WriteFile(path, []byte(formatResult(result)), 0644); err != nil {
		return fmt.Errorf("failed to write case log %s: %w", path, err)
	}
	return nil
}

// Complete is a no-op for FailedCaseFileSink
func (s *FailedCaseFileSink) Complete(data *reporting.ReportData) error {
	return nil
}

