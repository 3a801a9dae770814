// Package operationtest provides an in-memory xrandr stand-in for tests.
package operationtest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/hoppxi/adjust-brightness/pkg/operation"
)

var _ operation.Backend = (*Backend)(nil)

// Output describes one output reported by Backend.
type Output struct {
	Name         string
	Connected    bool
	Fraction     float64
	NoBrightness bool
}

// Applied records one call to Backend.Apply.
type Applied struct {
	Display  string
	Fraction string
}

// Backend renders xrandr-shaped text from a fixed set of outputs and
// records every Apply call. Applying updates the stored fraction so later
// queries observe it.
type Backend struct {
	mu      sync.Mutex
	Outputs []Output
	Applied []Applied

	EnumerateErr error
	QueryErr     error
	ApplyErr     error
	Missing      bool
}

func (f *Backend) Available() error {
	if f.Missing {
		return fmt.Errorf("%w: xrandr", operation.ErrToolMissing)
	}
	return nil
}

func (f *Backend) Enumerate(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EnumerateErr != nil {
		return "", f.EnumerateErr
	}

	var b strings.Builder
	b.WriteString("Screen 0: minimum 320 x 200, current 1920 x 1080, maximum 16384 x 16384\n")
	for _, o := range f.Outputs {
		if !o.Connected {
			fmt.Fprintf(&b, "%s disconnected (normal left inverted right x axis y axis)\n", o.Name)
			continue
		}
		fmt.Fprintf(&b, "%s connected 1920x1080+0+0 (normal left inverted right x axis y axis) 527mm x 296mm\n", o.Name)
		b.WriteString("   1920x1080     60.00*+\n")
	}
	return b.String(), nil
}

func (f *Backend) Query(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.QueryErr != nil {
		return "", f.QueryErr
	}

	var b strings.Builder
	b.WriteString("Screen 0: minimum 320 x 200, current 1920 x 1080, maximum 16384 x 16384\n")
	for i, o := range f.Outputs {
		if !o.Connected {
			fmt.Fprintf(&b, "%s disconnected (normal left inverted right x axis y axis)\n", o.Name)
			fmt.Fprintf(&b, "\tIdentifier: 0x%x\n", 0x40+i)
			continue
		}
		fmt.Fprintf(&b, "%s connected 1920x1080+0+0 (0x46) normal (normal left inverted right x axis y axis) 527mm x 296mm\n", o.Name)
		fmt.Fprintf(&b, "\tIdentifier: 0x%x\n", 0x40+i)
		b.WriteString("\tTimestamp:  20410\n")
		b.WriteString("\tSubpixel:   unknown\n")
		if !o.NoBrightness {
			b.WriteString("\tGamma:      1.0:1.0:1.0\n")
			fmt.Fprintf(&b, "\tBrightness: %.2f\n", o.Fraction)
		}
		b.WriteString("\tClones:    \n")
		b.WriteString("  1920x1080 (0x46) 148.500MHz +HSync +VSync *current +preferred\n")
	}
	return b.String(), nil
}

func (f *Backend) Apply(ctx context.Context, display, fraction string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ApplyErr != nil {
		return f.ApplyErr
	}

	v, err := strconv.ParseFloat(fraction, 64)
	if err != nil {
		return &operation.ToolError{Args: []string{"xrandr", "--output", display, "--brightness", fraction}, Err: err}
	}

	f.Applied = append(f.Applied, Applied{Display: display, Fraction: fraction})
	for i := range f.Outputs {
		if f.Outputs[i].Name == display {
			f.Outputs[i].Fraction = v
			return nil
		}
	}
	return &operation.ToolError{
		Args:   []string{"xrandr", "--output", display, "--brightness", fraction},
		Stderr: fmt.Sprintf("warning: output %s not found; ignoring", display),
		Err:    fmt.Errorf("exit status 1"),
	}
}

// LastApplied returns the most recent Apply call.
func (f *Backend) LastApplied() (Applied, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Applied) == 0 {
		return Applied{}, false
	}
	return f.Applied[len(f.Applied)-1], true
}
