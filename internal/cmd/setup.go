package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hoppxi/adjust-brightness/internal/manager"
	"github.com/hoppxi/adjust-brightness/pkg/displayinfo"
	"github.com/hoppxi/adjust-brightness/pkg/operation"
	"github.com/spf13/cobra"
)

func newSetupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactively generate the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			path := a.config.Path()

			if _, err := os.Stat(path); err == nil {
				fmt.Fprintf(out, "Warning: config already exists at %s\n", path)
				if !confirm(reader, out, "Continuing will overwrite it. Proceed?", false) {
					return nil
				}
			}

			s := a.settings
			s.Tool = prompt(reader, out, "Display tool", s.Tool)
			s.MinLevel = promptInt(reader, out, "Lowest selectable level", s.MinLevel, 0, displayinfo.Steps)
			s.Timeout = promptInt(reader, out, "Seconds allowed per tool call (0 waits forever)", s.Timeout, 0, 3600)
			s.Notify = confirm(reader, out, "Show a notification after applying a level?", s.Notify)

			if confirm(reader, out, "Record the current levels of connected displays for `apply`?", false) {
				display := a.display
				if s.Tool != a.settings.Tool {
					display = operation.NewDisplay(operation.NewXrandrBackend(s.Tool))
				}
				levels, err := recordLevels(cmd, display)
				if err != nil {
					fmt.Fprintf(out, "Could not record levels: %v\n", err)
				} else {
					s.Displays = levels
				}
			}

			if err := a.config.Write(s); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(out, "Config written to %s\n", path)
			return nil
		},
	}
}

func recordLevels(cmd *cobra.Command, display *operation.Display) ([]manager.DisplayLevel, error) {
	ctx := cmd.Context()
	names, err := display.ListConnected(ctx)
	if err != nil {
		return nil, err
	}

	levels := make([]manager.DisplayLevel, 0, len(names))
	for _, name := range names {
		level, err := display.Brightness(ctx, name)
		if err != nil {
			return nil, err
		}
		levels = append(levels, manager.DisplayLevel{Name: name, Level: level})
	}
	return levels, nil
}

func prompt(r *bufio.Reader, w io.Writer, label, defaultValue string) string {
	fmt.Fprintf(w, "%s [%s]: ", label, defaultValue)
	input, _ := r.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultValue
	}
	return input
}

func promptInt(r *bufio.Reader, w io.Writer, label string, defaultValue, lo, hi int) int {
	input := prompt(r, w, label, strconv.Itoa(defaultValue))
	n, err := strconv.Atoi(input)
	if err != nil || n < lo || n > hi {
		fmt.Fprintf(w, "Expected a number in [%d, %d], keeping %d\n", lo, hi, defaultValue)
		return defaultValue
	}
	return n
}

func confirm(r *bufio.Reader, w io.Writer, message string, defaultYes bool) bool {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}
	fmt.Fprintf(w, "%s (%s): ", message, hint)
	input, _ := r.ReadString('\n')
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return defaultYes
	}
	return input == "y" || input == "yes"
}
