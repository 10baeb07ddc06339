// Package templates holds the formatting helpers shared by report templates,
// console tables and case logs.
package templates

import (
	"fmt"
	"text/template"
	"time"

	"github.com/kbasefaqs/sr-acceptor/types"
)

// FuncMap returns the functions available to report templates
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"duration": FormatDuration,
		"percent":  FormatPercent,
		"millis":   FormatMillis,
		"status":   StatusText,
		"severityIcon": func(s types.Severity) string {
			return SeverityIcon(s)
		},
	}
}

// FormatDuration prints sub-second durations in milliseconds
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}

// FormatPercent prints a 0-100 rate with one decimal
func FormatPercent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate)
}

// FormatMillis prints a millisecond average
func FormatMillis(ms float64) string {
	return fmt.Sprintf("%.0fms", ms)
}

// StatusText returns the display status of a result
func StatusText(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

// SeverityIcon returns a marker for the severity, most severe first
func SeverityIcon(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return "🔴"
	case types.SeveritySerious:
		return "🟠"
	case types.SeverityModerate:
		return "🟡"
	case types.SeverityMinor:
		return "⚪"
	default:
		return "❔"
	}
}
