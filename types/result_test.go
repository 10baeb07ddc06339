package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityRank(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeveritySerious))
	assert.True(t, SeveritySerious.AtLeast(SeveritySerious))
	assert.False(t, SeverityModerate.AtLeast(SeveritySerious))
	assert.False(t, Severity("blocker").IsValid())
	assert.Equal(t, 0, Severity("").Rank())
}

func TestHighestSeverity(t *testing.T) {
	r := &TestResult{Violations: []Violation{
		{Rule: "a", Severity: SeverityMinor},
		{Rule: "b", Severity: SeveritySerious},
		{Rule: "c", Severity: SeverityModerate},
	}}
	assert.Equal(t, SeveritySerious, r.HighestSeverity())
	assert.Equal(t, Severity(""), (&TestResult{}).HighestSeverity())
}

func TestNewInfrastructureFailure(t *testing.T) {
	tc := TestCase{
		Name:                 "search-input",
		Target:               "#search",
		ExpectedAnnouncement: "Search, edit text",
		WCAGCriteria:         []string{"1.3.1", "4.1.2"},
	}

	t.Run("driver error", func(t *testing.T) {
		r := NewInfrastructureFailure(ScreenReaderNVDA, tc, RuleInfrastructureError, errors.New("pipe closed"), 12)
		assert.False(t, r.Passed)
		assert.Equal(t, "search-input", r.TestName)
		assert.Equal(t, ScreenReaderNVDA, r.ScreenReader)
		assert.Equal(t, int64(12), r.TimeTakenMs)
		require.Len(t, r.Violations, 1)
		v := r.Violations[0]
		assert.Equal(t, RuleInfrastructureError, v.Rule)
		assert.Equal(t, SeverityCritical, v.Severity)
		assert.Equal(t, "#search", v.Element)
		assert.Equal(t, "1.3.1", v.WCAGCriterion)
		assert.Contains(t, v.Description, "pipe closed")
		assert.True(t, r.HasInfrastructureFailure())
		assert.Equal(t, "pipe closed", r.Metadata[MetadataError])
	})

	t.Run("timeout", func(t *testing.T) {
		r := NewInfrastructureFailure(ScreenReaderJAWS, tc, RuleTimeout, nil, 30000)
		require.Len(t, r.Violations, 1)
		assert.Equal(t, RuleTimeout, r.Violations[0].Rule)
		assert.Equal(t, true, r.Metadata[MetadataTimedOut])
		assert.NotContains(t, r.Metadata, MetadataError)
	})
}

func TestTestCaseNormalized(t *testing.T) {
	tc := TestCase{
		Name:         " results-list ",
		Tags:         []string{"search", "list", "search", " "},
		WCAGCriteria: []string{"4.1.2", "1.3.1", "4.1.2"},
		Timeout:      time.Second,
	}
	n := tc.Normalized()
	assert.Equal(t, "results-list", n.Name)
	assert.Equal(t, []string{"list", "search"}, n.Tags)
	assert.Equal(t, []string{"1.3.1", "4.1.2"}, n.WCAGCriteria)
	assert.Equal(t, "1.3.1", n.PrimaryCriterion())
	assert.True(t, n.HasTag("list"))

	// the original is untouched
	assert.Equal(t, []string{"search", "list", "search", " "}, tc.Tags)
	assert.Equal(t, DefaultWCAGCriterion, TestCase{}.PrimaryCriterion())
}

func TestTestCaseCloneIsDeep(t *testing.T) {
	tc := TestCase{AriaAttributes: map[string]string{"aria-label": "Search"}}
	c := tc.Clone()
	c.AriaAttributes["aria-label"] = "changed"
	assert.Equal(t, "Search", tc.AriaAttributes["aria-label"])
}

func TestRunConfigurationValidate(t *testing.T) {
	cfg := DefaultRunConfiguration("aria")
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.ContinueOnFailure)
	assert.False(t, cfg.ParallelExecution)

	bad := RunConfiguration{
		EnabledScreenReaders: []ScreenReaderKind{"Orca"},
		TestSuites:           []string{""},
		CaseTimeout:          -time.Second,
	}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Orca")
	assert.Contains(t, err.Error(), "empty test suite name")
	assert.Contains(t, err.Error(), "negative")

	require.Error(t, RunConfiguration{}.Validate())
}

func TestRunConfigurationClone(t *testing.T) {
	cfg := RunConfiguration{
		EnabledScreenReaders: []ScreenReaderKind{ScreenReaderJAWS, ScreenReaderNVDA, ScreenReaderJAWS},
		TestSuites:           []string{"forms", "aria", "forms"},
	}
	c := cfg.Clone()
	assert.Equal(t, []ScreenReaderKind{ScreenReaderJAWS, ScreenReaderNVDA}, c.EnabledScreenReaders)
	assert.Equal(t, []string{"forms", "aria"}, c.TestSuites)
	assert.Equal(t, DefaultCaseTimeout, c.CaseTimeout)

	c.TestSuites[0] = "changed"
	assert.Equal(t, "forms", cfg.TestSuites[0])
}
