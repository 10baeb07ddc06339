package types

import (
	"fmt"
	"strings"
)

// Severity ranks how badly a violation affects users
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySerious  Severity = "serious"
	SeverityCritical Severity = "critical"
)

// AllSeverities lists severities from least to most severe
var AllSeverities = []Severity{SeverityMinor, SeverityModerate, SeveritySerious, SeverityCritical}

// Rank orders severities; unknown severities rank below minor.
func (s Severity) Rank() int {
	for i, known := range AllSeverities {
		if s == known {
			return i + 1
		}
	}
	return 0
}

// IsValid reports whether s is a known severity
func (s Severity) IsValid() bool {
	return s.Rank() > 0
}

// AtLeast reports whether s is at least as severe as other
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// Rule identifiers produced by the framework itself
const (
	RuleInfrastructureError   = "infrastructure-error"
	RuleTimeout               = "timeout"
	RuleAnnouncementMismatch  = "announcement-mismatch"
	RuleMissingAnnouncement   = "missing-announcement"
	RuleAriaAttributeMismatch = "aria-attribute-mismatch"
)

// Violation is a single detected accessibility non-conformance
type Violation struct {
	Rule          string   `json:"rule"`
	Severity      Severity `json:"severity"`
	Element       string   `json:"element"`
	Description   string   `json:"description"`
	Suggestion    string   `json:"suggestion"`
	WCAGCriterion string   `json:"wcagCriterion"`
}

// IsInfrastructure reports whether the violation describes an automation
// failure rather than a problem with the component under test
func (v Violation) IsInfrastructure() bool {
	return v.Rule == RuleInfrastructureError || v.Rule == RuleTimeout
}

// TestResult captures the outcome of one test case on one screen reader
type TestResult struct {
	TestName             string           `json:"testName"`
	Suite                string           `json:"suite,omitempty"`
	ScreenReader         ScreenReaderKind `json:"screenReader"`
	Passed               bool             `json:"passed"`
	ActualAnnouncement   string           `json:"actualAnnouncement"`
	ExpectedAnnouncement string           `json:"expectedAnnouncement"`
	TimeTakenMs          int64            `json:"timeTakenMs"`
	Violations           []Violation      `json:"violations"`
	Metadata             map[string]any   `json:"metadata,omitempty"`
}

// Metadata keys written by the framework
const (
	MetadataTarget   = "target"
	MetadataTimedOut = "timedOut"
	MetadataError    = "error"
	MetadataHost     = "host"
)

// HasInfrastructureFailure reports whether any violation is an automation failure
func (r *TestResult) HasInfrastructureFailure() bool {
	for _, v := range r.Violations {
		if v.IsInfrastructure() {
			return true
		}
	}
	return false
}

// HighestSeverity returns the most severe violation severity, or "" when there are none
func (r *TestResult) HighestSeverity() Severity {
	var highest Severity
	for _, v := range r.Violations {
		if v.Severity.Rank() > highest.Rank() {
			highest = v.Severity
		}
	}
	return highest
}

// String returns a one-line description of the result
func (r *TestResult) String() string {
	status := "pass"
	if !r.Passed {
		status = "fail"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s (%dms)", r.ScreenReader, r.TestName, status, r.TimeTakenMs)
	if len(r.Violations) > 0 {
		fmt.Fprintf(&b, " %d violation(s)", len(r.Violations))
	}
	return b.String()
}

// NewInfrastructureFailure builds a failed result for a case that could not be
// driven through the screen reader automation channel
func NewInfrastructureFailure(kind ScreenReaderKind, tc TestCase, rule string, err error, elapsedMs int64) *TestResult {
	desc := "screen reader automation failed"
	suggestion := fmt.Sprintf("Verify that %s and its automation driver are running on the host", kind)
	if rule == RuleTimeout {
		desc = "screen reader did not respond before the case timeout"
		suggestion = fmt.Sprintf("Increase the case timeout or check that %s is not blocked by a modal dialog", kind)
	}
	if err != nil {
		desc = fmt.Sprintf("%s: %v", desc, err)
	}
	metadata := map[string]any{MetadataTarget: tc.Target}
	if err != nil {
		metadata[MetadataError] = err.Error()
	}
	if rule == RuleTimeout {
		metadata[MetadataTimedOut] = true
	}
	return &TestResult{
		TestName:             tc.Name,
		ScreenReader:         kind,
		Passed:               false,
		ExpectedAnnouncement: tc.ExpectedAnnouncement,
		TimeTakenMs:          elapsedMs,
		Violations: []Violation{{
			Rule:          rule,
			Severity:      SeverityCritical,
			Element:       tc.Target,
			Description:   desc,
			Suggestion:    suggestion,
			WCAGCriterion: tc.PrimaryCriterion(),
		}},
		Metadata: metadata,
	}
}
