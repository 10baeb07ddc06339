package templates

import (
	"bytes"
	"testing"
	"text/template"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbasefaqs/sr-acceptor/types"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0ms", FormatDuration(0))
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond+300*time.Microsecond))
	assert.Equal(t, "2m0s", FormatDuration(2*time.Minute))
}

func TestFormatNumbers(t *testing.T) {
	assert.Equal(t, "66.7%", FormatPercent(200.0/3))
	assert.Equal(t, "100.0%", FormatPercent(100))
	assert.Equal(t, "13ms", FormatMillis(12.6))
	assert.Equal(t, "PASS", StatusText(true))
	assert.Equal(t, "FAIL", StatusText(false))
}

func TestSeverityIcon(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range types.AllSeverities {
		icon := SeverityIcon(s)
		assert.NotEqual(t, SeverityIcon("bogus"), icon, s)
		assert.False(t, seen[icon], "duplicate icon for %s", s)
		seen[icon] = true
	}
}

func TestFuncMap(t *testing.T) {
	tmpl, err := template.New("t").Funcs(FuncMap()).Parse(
		`{{duration .D}} {{percent .Rate}} {{millis .Avg}} {{status .OK}} {{severityIcon .Sev}}`)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tmpl.Execute(&buf, map[string]any{
		"D":    1200 * time.Millisecond,
		"Rate": 50.0,
		"Avg":  20.0,
		"OK":   false,
		"Sev":  types.SeverityCritical,
	}))
	assert.Equal(t, "1.2s 50.0% 20ms FAIL 🔴", buf.String())
}
