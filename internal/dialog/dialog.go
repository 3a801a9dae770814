package dialog

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hoppxi/adjust-brightness/pkg/displayinfo"
)

var (
	ErrCanceled   = errors.New("dialog canceled")
	ErrRefresh    = errors.New("refresh requested")
	ErrNoDisplays = errors.New("no connected displays")
)

// Controller is the brightness control the dialog drives.
type Controller interface {
	ListConnected(ctx context.Context) ([]string, error)
	Brightness(ctx context.Context, display string) (int, error)
	SetBrightness(ctx context.Context, display string, level int) error
}

// Prompter shows the dialogs. ChooseDisplay returns ErrRefresh when the
// display list should be rebuilt; both choosers return ErrCanceled when
// dismissed.
type Prompter interface {
	ChooseDisplay(displays []string, selected string) (string, error)
	ChooseLevel(display string, levels []int, current int) (int, error)
	Error(err error)
}

// State is everything the dialog shows: the display list, the selected
// display and the level seeded from it.
type State struct {
	Displays []string
	Selected string
	Level    int
}

type Session struct {
	Controller Controller
	Prompter   Prompter
	MinLevel   int
	// OnApplied runs after a level was set successfully.
	OnApplied func(display string, level int)
}

// Init enumerates displays and seeds the level of the first one. Nothing is
// shown when it fails.
func (s *Session) Init(ctx context.Context) (State, error) {
	displays, err := s.Controller.ListConnected(ctx)
	if err != nil {
		return State{}, err
	}
	if len(displays) == 0 {
		return State{}, ErrNoDisplays
	}

	state := State{Displays: displays}
	if err := s.Select(ctx, &state, displays[0]); err != nil {
		return State{}, err
	}
	return state, nil
}

// Select makes display current and resets the level to its live brightness.
func (s *Session) Select(ctx context.Context, state *State, display string) error {
	log.Println("Resetting level to current device brightness")
	level, err := s.Controller.Brightness(ctx, display)
	if err != nil {
		return err
	}
	state.Selected = display
	state.Level = level
	return nil
}

// Apply sets the selected display to level.
func (s *Session) Apply(ctx context.Context, state *State, level int) error {
	if state.Selected == "" {
		return fmt.Errorf("no display selected")
	}
	if err := s.Controller.SetBrightness(ctx, state.Selected, level); err != nil {
		return err
	}
	state.Level = level
	if s.OnApplied != nil {
		s.OnApplied(state.Selected, level)
	}
	return nil
}

// Refresh rebuilds the display list, keeping the selection when the display
// is still connected.
func (s *Session) Refresh(ctx context.Context, state *State) error {
	displays, err := s.Controller.ListConnected(ctx)
	if err != nil {
		return err
	}
	if len(displays) == 0 {
		return ErrNoDisplays
	}

	selected := displays[0]
	for _, d := range displays {
		if d == state.Selected {
			selected = d
			break
		}
	}
	state.Displays = displays
	return s.Select(ctx, state, selected)
}

func (s *Session) levels() []int {
	lo := max(s.MinLevel, 0)
	levels := make([]int, 0, displayinfo.Steps-lo+1)
	for l := lo; l <= displayinfo.Steps; l++ {
		levels = append(levels, l)
	}
	return levels
}

// Run shows the dialogs until the display chooser is dismissed.
func (s *Session) Run(ctx context.Context) error {
	state, err := s.Init(ctx)
	if err != nil {
		return err
	}
	return s.loop(ctx, &state)
}

func (s *Session) loop(ctx context.Context, state *State) error {
	for {
		display, err := s.Prompter.ChooseDisplay(state.Displays, state.Selected)
		switch {
		case errors.Is(err, ErrCanceled):
			return nil
		case errors.Is(err, ErrRefresh):
			if err := s.Refresh(ctx, state); err != nil {
				return err
			}
			continue
		case err != nil:
			return err
		}

		if err := s.Select(ctx, state, display); err != nil {
			s.Prompter.Error(err)
			continue
		}

		level, err := s.Prompter.ChooseLevel(state.Selected, s.levels(), max(state.Level, s.MinLevel))
		if errors.Is(err, ErrCanceled) {
			continue
		}
		if err != nil {
			return err
		}

		if err := s.Apply(ctx, state, level); err != nil {
			s.Prompter.Error(err)
		}
	}
}
