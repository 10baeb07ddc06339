// Package screenreader provides the NVDA, JAWS and VoiceOver adapters. Each
// adapter drives one screen reader through a Driver and normalizes what it
// hears into a types.TestResult.
package screenreader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/kbasefaqs/sr-acceptor/types"
)

// Adapter is the single capability the runner relies on. RunCase never
// panics and never returns an error: automation failures are reported as
// failed results.
type Adapter interface {
	Kind() types.ScreenReaderKind
	RunCase(ctx context.Context, tc types.TestCase) *types.TestResult
}

var _ Adapter = (*adapter)(nil)

// adapter is shared by all kinds; kinds differ only in vocabulary.
type adapter struct {
	kind       types.ScreenReaderKind
	driver     Driver
	normalizer *normalizer
	log        log.Logger
	host       string

	// mu gives a RunCase call exclusive use of the driver
	mu sync.Mutex
}

// NewNVDA creates an adapter for NVDA
func NewNVDA(driver Driver, logger log.Logger) Adapter {
	return newAdapter(types.ScreenReaderNVDA, driver, logger)
}

// NewJAWS creates an adapter for JAWS
func NewJAWS(driver Driver, logger log.Logger) Adapter {
	return newAdapter(types.ScreenReaderJAWS, driver, logger)
}

// NewVoiceOver creates an adapter for VoiceOver
func NewVoiceOver(driver Driver, logger log.Logger) Adapter {
	return newAdapter(types.ScreenReaderVoiceOver, driver, logger)
}

// New creates the adapter for the given kind
func New(kind types.ScreenReaderKind, driver Driver, logger log.Logger) (Adapter, error) {
	switch kind {
	case types.ScreenReaderNVDA:
		return NewNVDA(driver, logger), nil
	case types.ScreenReaderJAWS:
		return NewJAWS(driver, logger), nil
	case types.ScreenReaderVoiceOver:
		return NewVoiceOver(driver, logger), nil
	default:
		return nil, fmt.Errorf("no adapter for screen reader %q", kind)
	}
}

func newAdapter(kind types.ScreenReaderKind, driver Driver, logger log.Logger) *adapter {
	if logger == nil {
		logger = log.New()
	}
	host, _ := os.Hostname()
	return &adapter{
		kind:       kind,
		driver:     driver,
		normalizer: normalizerFor(kind),
		log:        logger.New("screenReader", kind),
		host:       host,
	}
}

// Kind implements Adapter
func (a *adapter) Kind() types.ScreenReaderKind {
	return a.kind
}

// RunCase implements Adapter
func (a *adapter) RunCase(ctx context.Context, tc types.TestCase) (result *types.TestResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("Driver panicked", "test", tc.Name, "panic", r)
			result = types.NewInfrastructureFailure(a.kind, tc, types.RuleInfrastructureError,
				fmt.Errorf("driver panic: %v", r), time.Since(start).Milliseconds())
		}
	}()

	if a.driver == nil {
		return types.NewInfrastructureFailure(a.kind, tc, types.RuleInfrastructureError,
			errors.New("no automation driver configured"), 0)
	}

	a.log.Debug("Capturing announcement", "test", tc.Name, "target", tc.Target)
	capture, err := a.driver.Capture(ctx, tc.Target)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		rule := types.RuleInfrastructureError
		if errors.Is(err, context.DeadlineExceeded) {
			rule = types.RuleTimeout
		}
		a.log.Warn("Automation failure", "test", tc.Name, "rule", rule, "err", err)
		return types.NewInfrastructureFailure(a.kind, tc, rule, err, elapsed)
	}
	if capture == nil {
		return types.NewInfrastructureFailure(a.kind, tc, types.RuleInfrastructureError,
			errors.New("driver returned no capture"), elapsed)
	}

	violations := a.evaluate(tc, capture)
	return &types.TestResult{
		TestName:             tc.Name,
		ScreenReader:         a.kind,
		Passed:               len(violations) == 0,
		ActualAnnouncement:   capture.Announcement,
		ExpectedAnnouncement: tc.ExpectedAnnouncement,
		TimeTakenMs:          elapsed,
		Violations:           violations,
		Metadata: map[string]any{
			types.MetadataTarget: tc.Target,
			types.MetadataHost:   a.host,
		},
	}
}

// evaluate compares a capture with the case's expectations
func (a *adapter) evaluate(tc types.TestCase, c *Capture) []types.Violation {
	var violations []types.Violation
	criterion := tc.PrimaryCriterion()

	actual := a.normalizer.normalize(c.Announcement)
	expected := a.normalizer.normalize(tc.ExpectedAnnouncement)
	switch {
	case actual == "":
		violations = append(violations, types.Violation{
			Rule:          types.RuleMissingAnnouncement,
			Severity:      types.SeverityCritical,
			Element:       tc.Target,
			Description:   fmt.Sprintf("%s announced nothing for the element", a.kind),
			Suggestion:    "Give the element an accessible name and make sure it is focusable or inside a live region",
			WCAGCriterion: criterion,
		})
	case !a.normalizer.contains(actual, expected):
		violations = append(violations, types.Violation{
			Rule:          types.RuleAnnouncementMismatch,
			Severity:      types.SeveritySerious,
			Element:       tc.Target,
			Description:   fmt.Sprintf("expected announcement %q, %s said %q", tc.ExpectedAnnouncement, a.kind, c.Announcement),
			Suggestion:    "Check the accessible name, role and state exposed by the element",
			WCAGCriterion: criterion,
		})
	}

	keys := make([]string, 0, len(tc.AriaAttributes))
	for k := range tc.AriaAttributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		want := tc.AriaAttributes[key]
		got, ok := c.Attributes[key]
		if ok && got == want {
			continue
		}
		desc := fmt.Sprintf("%s is %q, expected %q", key, got, want)
		if !ok {
			desc = fmt.Sprintf("%s is missing, expected %q", key, want)
		}
		violations = append(violations, types.Violation{
			Rule:          types.RuleAriaAttributeMismatch,
			Severity:      types.SeveritySerious,
			Element:       tc.Target,
			Description:   desc,
			Suggestion:    fmt.Sprintf("Set %s=%q on the element", key, want),
			WCAGCriterion: criterion,
		})
	}
	return violations
}
