package probe

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbasefaqs/sr-acceptor/types"
)

func TestHostProbe(t *testing.T) {
	tests := []struct {
		name     string
		goos     string
		err      error
		expected []types.ScreenReaderKind
	}{
		{name: "windows", goos: "windows", expected: []types.ScreenReaderKind{types.ScreenReaderNVDA, types.ScreenReaderJAWS}},
		{name: "macos", goos: "darwin", expected: []types.ScreenReaderKind{types.ScreenReaderVoiceOver}},
		{name: "linux", goos: "linux", expected: nil},
		{name: "unknown os", goos: "plan9", expected: nil},
		{name: "identification fails", err: errors.New("uname failed"), expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewHostProbeWithIdentifier(log.New(), func() (string, error) {
				return tt.goos, tt.err
			})
			assert.Equal(t, tt.expected, p.Probe())
		})
	}
}

func TestHostProbeIsStable(t *testing.T) {
	var calls atomic.Int32
	p := NewHostProbeWithIdentifier(log.New(), func() (string, error) {
		if calls.Add(1) > 1 {
			return "darwin", nil
		}
		return "windows", nil
	})

	first := p.Probe()
	second := p.Probe()
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load(), "OS should only be identified once")
	assert.Equal(t, types.PlatformWindows, p.Platform())

	// callers cannot mutate the cached result
	first[0] = types.ScreenReaderVoiceOver
	assert.Equal(t, types.ScreenReaderNVDA, p.Probe()[0])
}

func TestHostProbeNilIdentifierFailsClosed(t *testing.T) {
	p := NewHostProbeWithIdentifier(nil, nil)
	assert.Empty(t, p.Probe())
	assert.Equal(t, types.PlatformUnknown, p.Platform())
}

func TestRuntimeOS(t *testing.T) {
	goos, err := RuntimeOS()
	require.NoError(t, err)
	assert.NotEmpty(t, goos)
}

func TestStaticProbe(t *testing.T) {
	assert.Equal(t, []types.ScreenReaderKind{types.ScreenReaderVoiceOver}, NewStaticProbe(types.PlatformMacOS).Probe())
	assert.Empty(t, NewStaticProbe(types.PlatformLinux).Probe())
}

func TestIntersect(t *testing.T) {
	requested := []types.ScreenReaderKind{types.ScreenReaderVoiceOver, types.ScreenReaderJAWS, types.ScreenReaderNVDA}
	available := []types.ScreenReaderKind{types.ScreenReaderNVDA, types.ScreenReaderJAWS}

	enabled, excluded := Intersect(requested, available)
	assert.Equal(t, []types.ScreenReaderKind{types.ScreenReaderJAWS, types.ScreenReaderNVDA}, enabled)
	assert.Equal(t, []types.ScreenReaderKind{types.ScreenReaderVoiceOver}, excluded)

	enabled, excluded = Intersect(requested, nil)
	assert.Empty(t, enabled)
	assert.Equal(t, requested, excluded)
}
