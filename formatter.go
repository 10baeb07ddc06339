package sra

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"

	"github.com/kbasefaqs/sr-acceptor/reporting"
)

// ResultFormatter is responsible for formatting and displaying test results.
type ResultFormatter interface {
	FormatResults(data *reporting.ReportData) error
}

// ConsoleResultFormatter prints the results table followed by a text summary.
type ConsoleResultFormatter struct {
	logger  log.Logger
	out     io.Writer
	table   *reporting.TableReporter
	summary *reporting.TextSummaryFormatter
}

// NewConsoleResultFormatter creates a new ConsoleResultFormatter writing to stdout.
func NewConsoleResultFormatter(logger log.Logger) *ConsoleResultFormatter {
	return NewConsoleResultFormatterWithWriter(logger, os.Stdout)
}

// NewConsoleResultFormatterWithWriter creates a ConsoleResultFormatter writing to out.
func NewConsoleResultFormatterWithWriter(logger log.Logger, out io.Writer) *ConsoleResultFormatter {
	return &ConsoleResultFormatter{
		logger:  logger,
		out:     out,
		table:   reporting.NewTableReporter("Screen Reader Results", true),
		summary: reporting.NewTextSummaryFormatter(false),
	}
}

// FormatResults formats and displays the results of one run.
func (f *ConsoleResultFormatter) FormatResults(data *reporting.ReportData) error {
	if data == nil {
		return fmt.Errorf("no results to format")
	}
	f.logger.Info("Printing results...")

	table, err := f.table.GenerateTable(data)
	if err != nil {
		return fmt.Errorf("failed to format results table: %w", err)
	}
	summary, err := f.summary.Format(data)
	if err != nil {
		return fmt.Errorf("failed to format summary: %w", err)
	}
	if _, err := fmt.Fprintln(f.out, table); err != nil {
		return err
	}
	if _, err := fmt.Fprint(f.out, summary); err != nil {
		return err
	}
	if data.Digest != "" {
		if _, err := fmt.Fprintf(f.out, "Report digest: %s\n", data.Digest); err != nil {
			return err
		}
	}
	return nil
}
