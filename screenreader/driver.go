package screenreader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/acarl005/stripansi"
)

// Capture is what a screen reader announced for a target element
type Capture struct {
	Announcement string            `json:"announcement"`
	Attributes   map[string]string `json:"attributes"`
}

// Driver is the automation channel to one running screen reader. A driver is
// owned by exactly one adapter and is never called concurrently.
type Driver interface {
	// Capture focuses the target element and returns the resulting announcement.
	Capture(ctx context.Context, target string) (*Capture, error)
}

// DriverFunc adapts a function to the Driver interface
type DriverFunc func(ctx context.Context, target string) (*Capture, error)

// Capture implements Driver
func (f DriverFunc) Capture(ctx context.Context, target string) (*Capture, error) {
	return f(ctx, target)
}

// CommandBuilder builds the command used to reach the automation helper.
// It mirrors exec.CommandContext so tests can substitute a fake process.
type CommandBuilder func(ctx context.Context, name string, arg ...string) *exec.Cmd

var _ Driver = (*CommandDriver)(nil)

// CommandDriver talks to a screen reader through an external automation helper
// binary that prints a JSON capture on stdout.
type CommandDriver struct {
	binary     string
	extraArgs  []string
	cmdBuilder CommandBuilder
}

// NewCommandDriver creates a driver around the given helper binary
func NewCommandDriver(binary string, extraArgs ...string) (*CommandDriver, error) {
	if strings.TrimSpace(binary) == "" {
		return nil, errors.New("driver binary cannot be empty")
	}
	return &CommandDriver{
		binary:     binary,
		extraArgs:  extraArgs,
		cmdBuilder: exec.CommandContext,
	}, nil
}

// WithCommandBuilder replaces how the helper process is created
func (d *CommandDriver) WithCommandBuilder(b CommandBuilder) *CommandDriver {
	if b != nil {
		d.cmdBuilder = b
	}
	return d
}

// Binary returns the helper binary path
func (d *CommandDriver) Binary() string {
	return d.binary
}

// Capture implements Driver
func (d *CommandDriver) Capture(ctx context.Context, target string) (*Capture, error) {
	args := append([]string{"--target", target, "--format", "json"}, d.extraArgs...)
	cmd := d.cmdBuilder(ctx, d.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stripansi.Strip(stderr.String()))
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", d.binary, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", d.binary, err)
	}

	return decodeCapture(stdout.Bytes())
}

// decodeCapture parses helper output. Helpers often emit colored progress
// lines before the JSON document, so escapes are stripped and only the last
// non-empty line is decoded.
func decodeCapture(out []byte) (*Capture, error) {
	clean := strings.TrimSpace(stripansi.Strip(string(out)))
	if clean == "" {
		return nil, errors.New("driver produced no output")
	}
	lines := strings.Split(clean, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])

	var c Capture
	if err := json.Unmarshal([]byte(last), &c); err != nil {
		return nil, fmt.Errorf("decoding driver output: %w", err)
	}
	if c.Attributes == nil {
		c.Attributes = map[string]string{}
	}
	return &c, nil
}
