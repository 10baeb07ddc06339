package types

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// TestCase describes one accessibility scenario run against a screen reader
type TestCase struct {
	Name                 string            `yaml:"name" json:"name"`
	Target               string            `yaml:"target" json:"target"`
	ExpectedAnnouncement string            `yaml:"expected_announcement" json:"expectedAnnouncement"`
	AriaAttributes       map[string]string `yaml:"aria,omitempty" json:"ariaAttributes,omitempty"`
	Tags                 []string          `yaml:"tags,omitempty" json:"tags,omitempty"`
	WCAGCriteria         []string          `yaml:"wcag,omitempty" json:"wcagCriteria,omitempty"`
	Timeout              time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// TestSuite is a named, ordered collection of test case names
type TestSuite struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Cases       []string `yaml:"cases" json:"cases"`
}

// Clone returns a deep copy of the test case
func (tc TestCase) Clone() TestCase {
	out := tc
	out.AriaAttributes = maps.Clone(tc.AriaAttributes)
	out.Tags = slices.Clone(tc.Tags)
	out.WCAGCriteria = slices.Clone(tc.WCAGCriteria)
	return out
}

// Normalized returns a copy whose set-valued fields are sorted and de-duplicated
func (tc TestCase) Normalized() TestCase {
	out := tc.Clone()
	out.Name = strings.TrimSpace(out.Name)
	out.Tags = NormalizeSet(out.Tags)
	out.WCAGCriteria = NormalizeSet(out.WCAGCriteria)
	return out
}

// HasTag reports whether the case carries the given tag
func (tc TestCase) HasTag(tag string) bool {
	return slices.Contains(tc.Tags, tag)
}

// PrimaryCriterion returns the first WCAG criterion of the case, falling back
// to 4.1.2 (Name, Role, Value) which covers announcements in general.
func (tc TestCase) PrimaryCriterion() string {
	if len(tc.WCAGCriteria) > 0 {
		return tc.WCAGCriteria[0]
	}
	return DefaultWCAGCriterion
}

// DefaultWCAGCriterion is used when a case names no criterion
const DefaultWCAGCriterion = "4.1.2"

// NormalizeSet trims, sorts and de-duplicates a string set
func NormalizeSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
