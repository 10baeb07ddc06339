package types

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultCaseTimeout bounds a single screen reader automation call
const DefaultCaseTimeout = 30 * time.Second

// RunConfiguration selects what a run executes and how.
// It is validated once and treated as immutable for the lifetime of a run.
type RunConfiguration struct {
	EnabledScreenReaders     []ScreenReaderKind `json:"enabledScreenReaders"`
	TestSuites               []string           `json:"testSuites"`
	ParallelExecution        bool               `json:"parallelExecution"`
	GenerateComparisonReport bool               `json:"generateComparisonReport"`
	SaveIndividualReports    bool               `json:"saveIndividualReports"`
	ContinueOnFailure        bool               `json:"continueOnFailure"`
	CaseTimeout              time.Duration      `json:"caseTimeout"`
}

// DefaultRunConfiguration enables every screen reader, continues on failure
// and runs sequentially.
func DefaultRunConfiguration(suites ...string) RunConfiguration {
	return RunConfiguration{
		EnabledScreenReaders:     slices.Clone(AllScreenReaderKinds),
		TestSuites:               slices.Clone(suites),
		GenerateComparisonReport: true,
		ContinueOnFailure:        true,
		CaseTimeout:              DefaultCaseTimeout,
	}
}

// Validate checks the configuration for values that can never produce a run
func (c RunConfiguration) Validate() error {
	var errs []error
	if len(c.EnabledScreenReaders) == 0 {
		errs = append(errs, errors.New("no screen readers enabled"))
	}
	for _, k := range c.EnabledScreenReaders {
		if !k.IsValid() {
			errs = append(errs, fmt.Errorf("unknown screen reader %q", k))
		}
	}
	if len(c.TestSuites) == 0 {
		errs = append(errs, errors.New("no test suites selected"))
	}
	for _, s := range c.TestSuites {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, errors.New("empty test suite name"))
		}
	}
	if c.CaseTimeout < 0 {
		errs = append(errs, fmt.Errorf("case timeout cannot be negative: %s", c.CaseTimeout))
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy with set-valued fields de-duplicated. First
// occurrence wins so the caller's ordering is kept.
func (c RunConfiguration) Clone() RunConfiguration {
	out := c
	out.EnabledScreenReaders = dedupe(c.EnabledScreenReaders)
	out.TestSuites = dedupe(c.TestSuites)
	if out.CaseTimeout == 0 {
		out.CaseTimeout = DefaultCaseTimeout
	}
	return out
}

func dedupe[T comparable](in []T) []T {
	if in == nil {
		return nil
	}
	seen := make(map[T]bool, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// ParseScreenReaderList parses a list of kind names such as ["nvda", "JAWS"].
// The literal "all" selects every kind.
func ParseScreenReaderList(names []string) ([]ScreenReaderKind, error) {
	var kinds []ScreenReaderKind
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if strings.EqualFold(n, "all") {
			kinds = append(kinds, AllScreenReaderKinds...)
			continue
		}
		k, err := ParseScreenReaderKind(n)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return dedupe(kinds), nil
}
