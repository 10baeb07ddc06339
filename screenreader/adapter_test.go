package screenreader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbasefaqs/sr-acceptor/types"
)

func searchCase() types.TestCase {
	return types.TestCase{
		Name:                 "search-input-label",
		Target:               "#search-input",
		ExpectedAnnouncement: "Search questions, edit text",
		AriaAttributes:       map[string]string{"aria-label": "Search questions"},
		WCAGCriteria:         []string{"4.1.2"},
	}
}

func staticDriver(announcement string, attrs map[string]string) Driver {
	return DriverFunc(func(ctx context.Context, target string) (*Capture, error) {
		return &Capture{Announcement: announcement, Attributes: attrs}, nil
	})
}

func TestAdapterPassingCase(t *testing.T) {
	tests := []struct {
		name         string
		newAdapter   func(Driver, log.Logger) Adapter
		kind         types.ScreenReaderKind
		announcement string
	}{
		{name: "nvda", newAdapter: NewNVDA, kind: types.ScreenReaderNVDA, announcement: "Search questions  edit  text"},
		{name: "jaws", newAdapter: NewJAWS, kind: types.ScreenReaderJAWS, announcement: "Search questions, Edit, Type in text."},
		{name: "voiceover", newAdapter: NewVoiceOver, kind: types.ScreenReaderVoiceOver, announcement: "Search questions, search text field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.newAdapter(staticDriver(tt.announcement, map[string]string{"aria-label": "Search questions"}), log.New())
			assert.Equal(t, tt.kind, a.Kind())

			r := a.RunCase(context.Background(), searchCase())
			require.NotNil(t, r)
			assert.True(t, r.Passed, "violations: %+v", r.Violations)
			assert.Empty(t, r.Violations)
			assert.Equal(t, tt.kind, r.ScreenReader)
			assert.Equal(t, "search-input-label", r.TestName)
			assert.Equal(t, tt.announcement, r.ActualAnnouncement)
			assert.Equal(t, "Search questions, edit text", r.ExpectedAnnouncement)
			assert.Equal(t, "#search-input", r.Metadata[types.MetadataTarget])
		})
	}
}

func TestAdapterViolations(t *testing.T) {
	t.Run("announcement mismatch", func(t *testing.T) {
		a := NewNVDA(staticDriver("Search, edit", map[string]string{"aria-label": "Search questions"}), nil)
		r := a.RunCase(context.Background(), searchCase())
		assert.False(t, r.Passed)
		require.Len(t, r.Violations, 1)
		assert.Equal(t, types.RuleAnnouncementMismatch, r.Violations[0].Rule)
		assert.Equal(t, types.SeveritySerious, r.Violations[0].Severity)
		assert.Equal(t, "#search-input", r.Violations[0].Element)
		assert.Equal(t, "4.1.2", r.Violations[0].WCAGCriterion)
	})

	t.Run("missing announcement", func(t *testing.T) {
		a := NewJAWS(staticDriver("  ", map[string]string{"aria-label": "Search questions"}), nil)
		r := a.RunCase(context.Background(), searchCase())
		assert.False(t, r.Passed)
		require.Len(t, r.Violations, 1)
		assert.Equal(t, types.RuleMissingAnnouncement, r.Violations[0].Rule)
		assert.Equal(t, types.SeverityCritical, r.Violations[0].Severity)
	})

	t.Run("aria attributes", func(t *testing.T) {
		tc := searchCase()
		tc.AriaAttributes["aria-expanded"] = "false"
		a := NewVoiceOver(staticDriver("Search questions, edit text", map[string]string{"aria-label": "Search"}), nil)
		r := a.RunCase(context.Background(), tc)
		assert.False(t, r.Passed)
		require.Len(t, r.Violations, 2)
		// attributes are checked in key order
		assert.Contains(t, r.Violations[0].Description, "aria-expanded is missing")
		assert.Contains(t, r.Violations[1].Description, `aria-label is "Search"`)
		for _, v := range r.Violations {
			assert.Equal(t, types.RuleAriaAttributeMismatch, v.Rule)
		}
	})

	t.Run("word boundaries", func(t *testing.T) {
		tc := types.TestCase{Name: "x", Target: "#x", ExpectedAnnouncement: "page"}
		a := NewNVDA(staticDriver("pagination", nil), nil)
		assert.False(t, a.RunCase(context.Background(), tc).Passed)
	})
}

func TestAdapterInfrastructureFailures(t *testing.T) {
	t.Run("driver error", func(t *testing.T) {
		a := NewNVDA(DriverFunc(func(ctx context.Context, target string) (*Capture, error) {
			return nil, errors.New("NVDA controller client not running")
		}), nil)
		r := a.RunCase(context.Background(), searchCase())
		assert.False(t, r.Passed)
		require.Len(t, r.Violations, 1)
		assert.Equal(t, types.RuleInfrastructureError, r.Violations[0].Rule)
		assert.Contains(t, r.Violations[0].Description, "controller client")
	})

	t.Run("deadline", func(t *testing.T) {
		a := NewJAWS(DriverFunc(func(ctx context.Context, target string) (*Capture, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}), nil)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		r := a.RunCase(ctx, searchCase())
		require.Len(t, r.Violations, 1)
		assert.Equal(t, types.RuleTimeout, r.Violations[0].Rule)
	})

	t.Run("panic", func(t *testing.T) {
		a := NewVoiceOver(DriverFunc(func(ctx context.Context, target string) (*Capture, error) {
			panic("AppleScript bridge crashed")
		}), nil)
		var r *types.TestResult
		require.NotPanics(t, func() { r = a.RunCase(context.Background(), searchCase()) })
		require.NotNil(t, r)
		assert.False(t, r.Passed)
		assert.Contains(t, r.Violations[0].Description, "AppleScript bridge crashed")
	})

	t.Run("nil driver", func(t *testing.T) {
		r := NewNVDA(nil, nil).RunCase(context.Background(), searchCase())
		assert.False(t, r.Passed)
		assert.Equal(t, types.RuleInfrastructureError, r.Violations[0].Rule)
	})

	t.Run("nil capture", func(t *testing.T) {
		a := NewNVDA(DriverFunc(func(ctx context.Context, target string) (*Capture, error) {
			return nil, nil
		}), nil)
		r := a.RunCase(context.Background(), searchCase())
		assert.False(t, r.Passed)
		assert.Equal(t, types.RuleInfrastructureError, r.Violations[0].Rule)
	})
}

func TestAdapterSerializesDriverAccess(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	driver := DriverFunc(func(ctx context.Context, target string) (*Capture, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		return &Capture{Announcement: "ok"}, nil
	})
	a := NewNVDA(driver, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a.RunCase(context.Background(), types.TestCase{Name: fmt.Sprintf("c%d", i), Target: "#x", ExpectedAnnouncement: "ok"})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestNew(t *testing.T) {
	for _, kind := range types.AllScreenReaderKinds {
		a, err := New(kind, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, kind, a.Kind())
	}
	_, err := New("Orca", nil, nil)
	require.Error(t, err)
}

func TestNormalizer(t *testing.T) {
	tests := []struct {
		kind     types.ScreenReaderKind
		input    string
		expected string
	}{
		{types.ScreenReaderNVDA, "Send feedback  button  unavailable", "send feedback button unavailable"},
		{types.ScreenReaderJAWS, "Send feedback button grayed", "send feedback button unavailable"},
		{types.ScreenReaderVoiceOver, "Send feedback, dimmed, button", "send feedback unavailable button"},
		{types.ScreenReaderVoiceOver, "Filter by category, pop up button", "filter by category combo box"},
		{types.ScreenReaderNVDA, "Skip to results  link  clickable", "skip to results link"},
		{types.ScreenReaderNVDA, "\x1b[32mExpanded\x1b[0m", "expanded"},
		{types.ScreenReaderJAWS, "", ""},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.kind, tt.input), func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizerFor(tt.kind).normalize(tt.input))
		})
	}
}
