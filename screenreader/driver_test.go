package screenreader

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shellBuilder replaces the helper binary with a shell script and records
// the arguments the driver passed.
func shellBuilder(script string, gotArgs *[]string) CommandBuilder {
	return func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		*gotArgs = append([]string{name}, arg...)
		return exec.CommandContext(ctx, "sh", "-c", script)
	}
}

func TestDecodeCapture(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    *Capture
		wantErr bool
	}{
		{
			name: "plain json",
			out:  `{"announcement":"Search, edit","attributes":{"aria-label":"Search"}}`,
			want: &Capture{Announcement: "Search, edit", Attributes: map[string]string{"aria-label": "Search"}},
		},
		{
			name: "progress lines before the document",
			out:  "\x1b[33mfocusing #search\x1b[0m\n\n{\"announcement\":\"Search\"}\n",
			want: &Capture{Announcement: "Search", Attributes: map[string]string{}},
		},
		{
			name:    "empty output",
			out:     "  \n",
			wantErr: true,
		},
		{
			name:    "not json",
			out:     "announcement: Search",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeCapture([]byte(tt.out))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandDriver(t *testing.T) {
	_, err := NewCommandDriver("  ")
	require.Error(t, err)

	t.Run("successful capture", func(t *testing.T) {
		var args []string
		d, err := NewCommandDriver("nvda-capture", "--profile", "ci")
		require.NoError(t, err)
		d.WithCommandBuilder(shellBuilder(`echo '{"announcement":"Skip to results, link"}'`, &args))

		c, err := d.Capture(context.Background(), "a.skip-link")
		require.NoError(t, err)
		assert.Equal(t, "Skip to results, link", c.Announcement)
		assert.Equal(t, []string{"nvda-capture", "--target", "a.skip-link", "--format", "json", "--profile", "ci"}, args)
		assert.Equal(t, "nvda-capture", d.Binary())
	})

	t.Run("helper failure includes stderr", func(t *testing.T) {
		var args []string
		d, err := NewCommandDriver("jaws-capture")
		require.NoError(t, err)
		d.WithCommandBuilder(shellBuilder(`printf '\033[31mJAWS is not running\033[0m' >&2; exit 3`, &args))

		_, err = d.Capture(context.Background(), "#x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jaws-capture")
		assert.Contains(t, err.Error(), "JAWS is not running")
		assert.NotContains(t, err.Error(), "\x1b")
	})

	t.Run("deadline", func(t *testing.T) {
		var args []string
		d, err := NewCommandDriver("voiceover-capture")
		require.NoError(t, err)
		d.WithCommandBuilder(shellBuilder(`sleep 5`, &args))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = d.Capture(ctx, "#x")
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
