package reporting

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/kbasefaqs/sr-acceptor/types"
)

// Success rate thresholds used by the recommendation rules
const (
	MinorIssuesThreshold     = 90.0
	SignificantGapsThreshold = 70.0
)

// HaltReasonInterrupted is the HaltedBy value of a run stopped by its caller
const HaltReasonInterrupted = "interrupted"

const recommendationListMaximum = 5

// Aggregator turns a set of TestResults into a ComparisonReport. It holds no
// state besides its options and never modifies the results it is given.
type Aggregator struct {
	order    []types.ScreenReaderKind
	haltedBy string
	partial  bool
}

// NewAggregator creates an aggregator with no pinned adapter order
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// WithAdapterOrder pins the order of ScreenReadersUsed and AdapterSummaries.
// Kinds that produced no results are left out; kinds that are not pinned
// follow in first-appearance order.
func (a *Aggregator) WithAdapterOrder(kinds ...types.ScreenReaderKind) *Aggregator {
	out := *a
	out.order = slices.Clone(kinds)
	return &out
}

// WithHalt marks the report as partial. haltedBy names what stopped the run.
func (a *Aggregator) WithHalt(haltedBy string) *Aggregator {
	out := *a
	out.partial = true
	out.haltedBy = haltedBy
	return &out
}

// Aggregate builds a report with a default aggregator
func Aggregate(results []types.TestResult) *types.ComparisonReport {
	return NewAggregator().Aggregate(results)
}

// Aggregate builds the comparison report for results. The output depends only
// on the results and the aggregator options.
func (a *Aggregator) Aggregate(results []types.TestResult) *types.ComparisonReport {
	report := &types.ComparisonReport{
		ScreenReadersUsed:    []types.ScreenReaderKind{},
		PerAdapterResults:    make(map[types.ScreenReaderKind][]types.TestResult),
		AdapterSummaries:     []types.AdapterSummary{},
		ViolationsBySeverity: make(map[types.Severity]int, len(types.AllSeverities)),
		Partial:              a.partial,
		HaltedBy:             a.haltedBy,
	}
	for _, s := range types.AllSeverities {
		report.ViolationsBySeverity[s] = 0
	}

	var totalTime int64
	components := make(map[string]struct{})
	var firstSeen []types.ScreenReaderKind
	for _, r := range results {
		report.TotalTests++
		if r.Passed {
			report.PassedTests++
		} else {
			report.FailedTests++
		}
		totalTime += r.TimeTakenMs
		components[r.TestName] = struct{}{}
		for _, v := range r.Violations {
			report.ViolationsBySeverity[v.Severity]++
		}
		if _, ok := report.PerAdapterResults[r.ScreenReader]; !ok {
			firstSeen = append(firstSeen, r.ScreenReader)
		}
		report.PerAdapterResults[r.ScreenReader] = append(report.PerAdapterResults[r.ScreenReader], cloneResult(r))
	}

	report.ComponentsTested = len(components)
	if report.TotalTests > 0 {
		report.SuccessRate = float64(report.PassedTests) / float64(report.TotalTests) * 100
		report.AverageTestTimeMs = float64(totalTime) / float64(report.TotalTests)
	}

	for _, k := range a.order {
		if _, ok := report.PerAdapterResults[k]; ok && !slices.Contains(report.ScreenReadersUsed, k) {
			report.ScreenReadersUsed = append(report.ScreenReadersUsed, k)
		}
	}
	for _, k := range firstSeen {
		if !slices.Contains(report.ScreenReadersUsed, k) {
			report.ScreenReadersUsed = append(report.ScreenReadersUsed, k)
		}
	}
	for _, k := range report.ScreenReadersUsed {
		report.AdapterSummaries = append(report.AdapterSummaries, summarize(k, report.PerAdapterResults[k]))
	}

	report.Recommendations = recommend(report)
	return report
}

func summarize(kind types.ScreenReaderKind, results []types.TestResult) types.AdapterSummary {
	s := types.AdapterSummary{ScreenReader: kind, TotalTests: len(results)}
	var totalTime int64
	for _, r := range results {
		if r.Passed {
			s.PassedTests++
		} else {
			s.FailedTests++
		}
		totalTime += r.TimeTakenMs
		s.Violations += len(r.Violations)
	}
	if s.TotalTests > 0 {
		s.SuccessRate = float64(s.PassedTests) / float64(s.TotalTests) * 100
		s.AverageTestTimeMs = float64(totalTime) / float64(s.TotalTests)
	}
	return s
}

// cloneResult copies the slices and maps of a result so the report does not
// alias the caller's data.
func cloneResult(r types.TestResult) types.TestResult {
	out := r
	if r.Violations != nil {
		out.Violations = slices.Clone(r.Violations)
	}
	if len(r.Metadata) == 0 {
		// an empty map does not survive the JSON round trip
		out.Metadata = nil
	} else {
		out.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// recommend applies the recommendation rules in a fixed order
func recommend(report *types.ComparisonReport) []string {
	var recs []string
	rate := report.SuccessRate

	if report.TotalTests == 0 {
		recs = append(recs, "No tests were executed. Check the selected suites and which screen readers are available on this host.")
		if report.Partial {
			recs = append(recs, haltNote(report.HaltedBy))
		}
		return recs
	}

	var totalViolations int
	for _, n := range report.ViolationsBySeverity {
		totalViolations += n
	}

	switch {
	case rate == 100 && totalViolations == 0:
		recs = append(recs, "All tested components are compliant across every screen reader used.")
	case rate == 100:
		recs = append(recs, fmt.Sprintf("All tested components pass across every screen reader used, with %d non-blocking violations to review.",
			totalViolations))
	case rate >= MinorIssuesThreshold && rate < 100:
		recs = append(recs, fmt.Sprintf("Minor accessibility issues: %d of %d cases failed (%.1f%% success). Fix them before the next release.",
			report.FailedTests, report.TotalTests, rate))
	case rate >= SignificantGapsThreshold && rate < MinorIssuesThreshold:
		recs = append(recs, fmt.Sprintf("Significant accessibility gaps: %d of %d cases failed (%.1f%% success). Prioritize remediation of the failing components.",
			report.FailedTests, report.TotalTests, rate))
	case rate < SignificantGapsThreshold:
		recs = append(recs, fmt.Sprintf("Accessibility regression: only %.1f%% of cases passed. Block the release until the failures are fixed.", rate))
	}

	critical := report.ViolationsBySeverity[types.SeverityCritical]
	serious := report.ViolationsBySeverity[types.SeveritySerious]
	if critical+serious > 0 {
		recs = append(recs, fmt.Sprintf("Remediate %d critical and %d serious violations (rules: %s).",
			critical, serious, strings.Join(blockingRules(report), ", ")))
	}

	if kinds := infrastructureKinds(report); len(kinds) > 0 {
		recs = append(recs, fmt.Sprintf("Automation infrastructure failed on %s. Verify the screen readers and their drivers before trusting these results.",
			joinKinds(kinds)))
	}

	if names := inconsistentCases(report); len(names) > 0 {
		recs = append(recs, fmt.Sprintf("Inconsistent behavior across screen readers for %s. Review the announcements of each screen reader for these components.",
			limitList(names)))
	}

	if report.Partial {
		recs = append(recs, haltNote(report.HaltedBy))
	}
	return recs
}

func haltNote(haltedBy string) string {
	if haltedBy == HaltReasonInterrupted {
		return "The run was interrupted before the schedule completed; results are partial."
	}
	if haltedBy == "" {
		return "The run halted before the schedule completed; results are partial."
	}
	return fmt.Sprintf("The run halted on the first failure (%s); results are partial. Re-run with continue-on-failure for full coverage.", haltedBy)
}

// blockingRules returns the sorted rules of critical and serious violations
func blockingRules(report *types.ComparisonReport) []string {
	set := make(map[string]struct{})
	for _, r := range report.AllResults() {
		for _, v := range r.Violations {
			if v.Severity.AtLeast(types.SeveritySerious) {
				set[v.Rule] = struct{}{}
			}
		}
	}
	rules := make([]string, 0, len(set))
	for rule := range set {
		rules = append(rules, rule)
	}
	sort.Strings(rules)
	return rules
}

func infrastructureKinds(report *types.ComparisonReport) []types.ScreenReaderKind {
	var kinds []types.ScreenReaderKind
	for _, k := range report.ScreenReadersUsed {
		for _, r := range report.PerAdapterResults[k] {
			if r.HasInfrastructureFailure() {
				kinds = append(kinds, k)
				break
			}
		}
	}
	return kinds
}

// inconsistentCases returns the sorted names of cases that passed on one
// screen reader and failed on another
func inconsistentCases(report *types.ComparisonReport) []string {
	type outcome struct{ passed, failed bool }
	outcomes := make(map[string]*outcome)
	for _, r := range report.AllResults() {
		o, ok := outcomes[r.TestName]
		if !ok {
			o = &outcome{}
			outcomes[r.TestName] = o
		}
		if r.Passed {
			o.passed = true
		} else {
			o.failed = true
		}
	}
	var names []string
	for name, o := range outcomes {
		if o.passed && o.failed {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func joinKinds(kinds []types.ScreenReaderKind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}

func limitList(names []string) string {
	if len(names) <= recommendationListMaximum {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(names[:recommendationListMaximum], ", "), len(names)-recommendationListMaximum)
}
