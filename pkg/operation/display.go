package operation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hoppxi/adjust-brightness/pkg/displayinfo"
)

var ErrLevelOutOfRange = errors.New("brightness level out of range")

// Display reads and sets output brightness through a Backend.
type Display struct {
	backend Backend
	// Timeout bounds every backend call when positive.
	Timeout time.Duration
}

func NewDisplay(backend Backend) *Display {
	return &Display{backend: backend}
}

func (d *Display) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.Timeout)
}

// Available reports ErrToolMissing when the backend's tool is not installed.
func (d *Display) Available() error {
	if c, ok := d.backend.(Checker); ok {
		return c.Available()
	}
	return nil
}

// ListConnected returns the connected output names in the tool's order.
func (d *Display) ListConnected(ctx context.Context) ([]string, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	log.Println("Updating display options")
	out, err := d.backend.Enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list displays: %w", err)
	}

	displays := displayinfo.ParseConnected(out)
	log.Printf("Connected displays: %v", displays)
	return displays, nil
}

func (d *Display) Info(ctx context.Context, display string) (*displayinfo.DisplayInfo, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	out, err := d.backend.Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query brightness: %w", err)
	}

	info, err := displayinfo.GetDisplayInfo(out, display)
	if err != nil {
		return nil, err
	}
	log.Printf("Brightness level of device %s is %.2f", display, info.Fraction)
	return info, nil
}

// Brightness returns the current level (0-10) of display.
func (d *Display) Brightness(ctx context.Context, display string) (int, error) {
	info, err := d.Info(ctx, display)
	if err != nil {
		return 0, err
	}
	return info.Level, nil
}

// SetBrightness applies level (0-10) to display.
func (d *Display) SetBrightness(ctx context.Context, display string, level int) error {
	if level < 0 || level > displayinfo.Steps {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrLevelOutOfRange, level, displayinfo.Steps)
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	fraction := displayinfo.FractionString(level)
	log.Printf("Setting brightness of %s to %s", display, fraction)
	if err := d.backend.Apply(ctx, display, fraction); err != nil {
		return fmt.Errorf("failed to set brightness: %w", err)
	}
	return nil
}
