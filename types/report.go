package types

// AdapterSummary is the per screen reader breakdown of a comparison report
type AdapterSummary struct {
	ScreenReader      ScreenReaderKind `json:"screenReader"`
	TotalTests        int              `json:"totalTests"`
	PassedTests       int              `json:"passedTests"`
	FailedTests       int              `json:"failedTests"`
	SuccessRate       float64          `json:"successRate"`
	AverageTestTimeMs float64          `json:"averageTestTimeMs"`
	Violations        int              `json:"violations"`
}

// ComparisonReport is the aggregated, cross screen reader summary of a run.
// A report with Partial set is the result of a run halted before its
// schedule completed.
type ComparisonReport struct {
	TotalTests           int                               `json:"totalTests"`
	PassedTests          int                               `json:"passedTests"`
	FailedTests          int                               `json:"failedTests"`
	SuccessRate          float64                           `json:"successRate"`
	ScreenReadersUsed    []ScreenReaderKind                `json:"screenReadersUsed"`
	ComponentsTested     int                               `json:"componentsTested"`
	AverageTestTimeMs    float64                           `json:"averageTestTimeMs"`
	Recommendations      []string                          `json:"recommendations"`
	PerAdapterResults    map[ScreenReaderKind][]TestResult `json:"perAdapterResults"`
	AdapterSummaries     []AdapterSummary                  `json:"adapterSummaries"`
	ViolationsBySeverity map[Severity]int                  `json:"violationsBySeverity"`
	Partial              bool                              `json:"partial"`
	HaltedBy             string                            `json:"haltedBy,omitempty"`
}

// HasFailures reports whether any test failed
func (r *ComparisonReport) HasFailures() bool {
	return r.FailedTests > 0
}

// AllResults returns every result in ScreenReadersUsed order, preserving
// intra-adapter order.
func (r *ComparisonReport) AllResults() []TestResult {
	var out []TestResult
	for _, kind := range r.ScreenReadersUsed {
		out = append(out, r.PerAdapterResults[kind]...)
	}
	return out
}

// Summary returns the breakdown for a single screen reader
func (r *ComparisonReport) Summary(kind ScreenReaderKind) (AdapterSummary, bool) {
	for _, s := range r.AdapterSummaries {
		if s.ScreenReader == kind {
			return s, true
		}
	}
	return AdapterSummary{}, false
}
