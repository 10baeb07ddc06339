// Package probe determines which screen readers can run on the current host.
package probe

import (
	"errors"
	"runtime"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/kbasefaqs/sr-acceptor/types"
)

// AvailabilityProbe reports the screen readers the host can run.
type AvailabilityProbe interface {
	Probe() []types.ScreenReaderKind
}

// OSIdentifier returns the host operating system identifier
type OSIdentifier func() (string, error)

// RuntimeOS identifies the host from the Go runtime
func RuntimeOS() (string, error) {
	if runtime.GOOS == "" {
		return "", errors.New("runtime did not report an operating system")
	}
	return runtime.GOOS, nil
}

var _ AvailabilityProbe = (*HostProbe)(nil)

// HostProbe derives availability from the host OS and each kind's fixed
// platform affinity. The result is computed once per probe.
type HostProbe struct {
	identify OSIdentifier
	log      log.Logger

	once     sync.Once
	platform types.Platform
	kinds    []types.ScreenReaderKind
}

// NewHostProbe creates a probe for the current host
func NewHostProbe(logger log.Logger) *HostProbe {
	return NewHostProbeWithIdentifier(logger, RuntimeOS)
}

// NewHostProbeWithIdentifier creates a probe that uses a custom OS identifier
func NewHostProbeWithIdentifier(logger log.Logger, identify OSIdentifier) *HostProbe {
	if logger == nil {
		logger = log.New()
	}
	return &HostProbe{
		identify: identify,
		log:      logger.New("component", "probe"),
	}
}

// Probe returns the kinds available on this host. If the OS cannot be
// identified no kind is reported available.
func (p *HostProbe) Probe() []types.ScreenReaderKind {
	p.once.Do(func() {
		p.platform = types.PlatformUnknown
		if p.identify == nil {
			p.log.Warn("No OS identifier configured, no screen readers available")
			return
		}
		goos, err := p.identify()
		if err != nil {
			p.log.Warn("Failed to identify host OS, no screen readers available", "err", err)
			return
		}
		p.platform = types.ParsePlatform(goos)
		p.kinds = types.KindsForPlatform(p.platform)
		p.log.Debug("Probed host", "os", goos, "platform", p.platform, "available", p.kinds)
	})
	return slices.Clone(p.kinds)
}

// Platform returns the probed platform
func (p *HostProbe) Platform() types.Platform {
	p.Probe()
	return p.platform
}

// StaticProbe reports a fixed platform's kinds regardless of the host
type StaticProbe struct {
	platform types.Platform
}

var _ AvailabilityProbe = StaticProbe{}

// NewStaticProbe creates a probe pinned to a platform
func NewStaticProbe(p types.Platform) StaticProbe {
	return StaticProbe{platform: p}
}

// Probe implements AvailabilityProbe
func (s StaticProbe) Probe() []types.ScreenReaderKind {
	return types.KindsForPlatform(s.platform)
}

// Intersect returns the requested kinds that are also available, preserving
// the requested order, together with the excluded kinds.
func Intersect(requested, available []types.ScreenReaderKind) (enabled, excluded []types.ScreenReaderKind) {
	for _, k := range requested {
		if slices.Contains(available, k) {
			enabled = append(enabled, k)
		} else {
			excluded = append(excluded, k)
		}
	}
	return enabled, excluded
}
