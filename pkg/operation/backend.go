package operation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

var ErrToolMissing = errors.New("display tool not found in PATH")

// ToolError reports a failed invocation of the display tool.
type ToolError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("failed to run %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Backend is the transport to the display tool. Enumerate and Query return
// the raw text printed by the plain and verbose queries.
type Backend interface {
	Enumerate(ctx context.Context) (string, error)
	Query(ctx context.Context) (string, error)
	Apply(ctx context.Context, display, fraction string) error
}

// Checker is implemented by backends that can report whether their tool is
// installed without running it.
type Checker interface {
	Available() error
}

// XrandrBackend runs xrandr (or a compatible tool) as a subprocess.
type XrandrBackend struct {
	Tool string
}

func NewXrandrBackend(tool string) *XrandrBackend {
	if tool == "" {
		tool = "xrandr"
	}
	return &XrandrBackend{Tool: tool}
}

func (b *XrandrBackend) Available() error {
	if _, err := exec.LookPath(b.Tool); err != nil {
		return fmt.Errorf("%w: %s", ErrToolMissing, b.Tool)
	}
	return nil
}

func (b *XrandrBackend) run(ctx context.Context, args ...string) (string, error) {
	path, err := exec.LookPath(b.Tool)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolMissing, b.Tool)
	}

	log.Printf("Running %s %s", b.Tool, strings.Join(args, " "))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", &ToolError{
			Args:   append([]string{b.Tool}, args...),
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return string(out), nil
}

func (b *XrandrBackend) Enumerate(ctx context.Context) (string, error) {
	return b.run(ctx)
}

func (b *XrandrBackend) Query(ctx context.Context) (string, error) {
	return b.run(ctx, "--verbose")
}

func (b *XrandrBackend) Apply(ctx context.Context, display, fraction string) error {
	_, err := b.run(ctx, "--output", display, "--brightness", fraction)
	return err
}
