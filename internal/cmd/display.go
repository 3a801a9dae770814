package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/hoppxi/adjust-brightness/internal/dialog"
	"github.com/hoppxi/adjust-brightness/pkg/displayinfo"
	"github.com/hoppxi/adjust-brightness/pkg/operation"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List connected displays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			displays, err := a.display.ListConnected(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				if displays == nil {
					displays = []string{}
				}
				data, err := json.MarshalIndent(displays, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			for _, d := range displays {
				fmt.Fprintln(out, d)
			}
			return nil
		},
	}
	listCmd.Flags().Bool("json", false, "Print the display names as a JSON array")
	return listCmd
}

// resolveDisplay returns args[0], or the first connected display when no
// display was named.
func (a *app) resolveDisplay(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	displays, err := a.display.ListConnected(cmd.Context())
	if err != nil {
		return "", err
	}
	if len(displays) == 0 {
		return "", dialog.ErrNoDisplays
	}
	return displays[0], nil
}

func newGetCmd(a *app) *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get [display]",
		Short: "Print the brightness level (0-10) of a display",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			display, err := a.resolveDisplay(cmd, args)
			if err != nil {
				return err
			}

			info, err := a.display.Info(cmd.Context(), display)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			fmt.Fprintln(out, info.Level)
			return nil
		},
	}
	getCmd.Flags().Bool("json", false, "Print name, fraction and level as JSON")
	return getCmd
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <display> <level>",
		Short: "Set the brightness level of a display",
		Long: fmt.Sprintf(`Set the brightness level (0-%d) of a display.

The level may be an expression over the current level:
  set DP-1 7           absolute
  set DP-1 +2          two steps brighter
  set DP-1 level-1     one step darker
  set DP-1 -- -1       same, "--" stops flag parsing

The result is clamped to [min_level, %d].`, displayinfo.Steps, displayinfo.Steps),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			display, expr := args[0], args[1]
			ctx := cmd.Context()

			current := 0
			if operation.NeedsCurrent(expr) {
				var err error
				if current, err = a.display.Brightness(ctx, display); err != nil {
					return err
				}
			}

			level, err := operation.EvalLevel(expr, current, a.settings.MinLevel)
			if err != nil {
				return err
			}

			if err := a.display.SetBrightness(ctx, display, level); err != nil {
				return err
			}
			a.announce(display, level)

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", display, level)
			return nil
		},
	}
}
