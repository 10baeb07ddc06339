// Package types contains shared types used across the screen reader acceptance framework
package types

import (
	"fmt"
	"strings"
)

// ScreenReaderKind identifies a screen reader automation backend
type ScreenReaderKind string

// String implements the Stringer interface for ScreenReaderKind
func (k ScreenReaderKind) String() string {
	return string(k)
}

// ScreenReaderKind enum values
const (
	ScreenReaderNVDA      ScreenReaderKind = "NVDA"
	ScreenReaderJAWS      ScreenReaderKind = "JAWS"
	ScreenReaderVoiceOver ScreenReaderKind = "VoiceOver"
)

// AllScreenReaderKinds lists every supported kind in canonical order.
var AllScreenReaderKinds = []ScreenReaderKind{
	ScreenReaderNVDA,
	ScreenReaderJAWS,
	ScreenReaderVoiceOver,
}

// Platform identifies a host operating system family
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformMacOS   Platform = "darwin"
	PlatformLinux   Platform = "linux"
	PlatformUnknown Platform = "unknown"
)

// platformAffinity is the fixed OS affinity of each screen reader
var platformAffinity = map[ScreenReaderKind]Platform{
	ScreenReaderNVDA:      PlatformWindows,
	ScreenReaderJAWS:      PlatformWindows,
	ScreenReaderVoiceOver: PlatformMacOS,
}

// Platform returns the host platform the screen reader requires.
func (k ScreenReaderKind) Platform() Platform {
	if p, ok := platformAffinity[k]; ok {
		return p
	}
	return PlatformUnknown
}

// IsValid reports whether k is one of the known kinds.
func (k ScreenReaderKind) IsValid() bool {
	_, ok := platformAffinity[k]
	return ok
}

// Slug returns a lowercase identifier suitable for file names and metric labels.
func (k ScreenReaderKind) Slug() string {
	return strings.ToLower(string(k))
}

// ParseScreenReaderKind parses a kind name, ignoring case.
func ParseScreenReaderKind(s string) (ScreenReaderKind, error) {
	needle := strings.TrimSpace(s)
	for _, k := range AllScreenReaderKinds {
		if strings.EqualFold(needle, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown screen reader %q (expected one of: nvda, jaws, voiceover)", s)
}

// ParsePlatform maps an OS identifier (as reported by the Go runtime) to a Platform.
func ParsePlatform(goos string) Platform {
	switch strings.ToLower(strings.TrimSpace(goos)) {
	case "windows":
		return PlatformWindows
	case "darwin", "macos":
		return PlatformMacOS
	case "linux":
		return PlatformLinux
	default:
		return PlatformUnknown
	}
}

// KindsForPlatform returns the kinds that can run on the given platform, in canonical order.
func KindsForPlatform(p Platform) []ScreenReaderKind {
	var kinds []ScreenReaderKind
	for _, k := range AllScreenReaderKinds {
		if k.Platform() == p {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
