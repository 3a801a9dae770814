package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/hoppxi/adjust-brightness/internal/manager"
	"github.com/hoppxi/adjust-brightness/internal/watchers"
	"github.com/spf13/cobra"
)

func newApplyCmd(a *app) *cobra.Command {
	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the display levels listed in the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if watch, _ := cmd.Flags().GetBool("watch"); !watch {
				return a.applyConfigured(cmd.Context(), out, a.settings)
			}
			return a.watchConfigured(cmd.Context(), out)
		},
	}
	applyCmd.Flags().Bool("watch", false, "Keep running and re-apply whenever the config file changes")
	return applyCmd
}

// applyConfigured sets every connected display listed in s. Displays that
// are not connected are skipped.
func (a *app) applyConfigured(ctx context.Context, out io.Writer, s manager.Settings) error {
	if len(s.Displays) == 0 {
		fmt.Fprintf(out, "No display levels configured in %s\n", a.config.Path())
		return nil
	}

	connected, err := a.display.ListConnected(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, d := range s.Displays {
		if !slices.Contains(connected, d.Name) {
			log.Printf("Skipping %s: not connected", d.Name)
			continue
		}

		level := max(d.Level, s.MinLevel)
		if err := a.display.SetBrightness(ctx, d.Name, level); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name, err))
			continue
		}
		fmt.Fprintf(out, "%s: %d\n", d.Name, level)
	}
	return errors.Join(errs...)
}

func (a *app) watchConfigured(ctx context.Context, out io.Writer) error {
	events := make(chan struct{}, 1)
	if err := a.config.Watch(watchers.Signal(events)); err != nil {
		return err
	}

	apply := func() {
		s, err := a.config.Settings()
		if err != nil {
			fmt.Fprintf(out, "Config rejected: %v\n", err)
			return
		}
		if err := a.applyConfigured(ctx, out, s); err != nil {
			fmt.Fprintf(out, "Apply failed: %v\n", err)
		}
	}

	fmt.Fprintf(out, "Watching %s. Press Ctrl+C to stop.\n", a.config.Path())

	m := &manager.AppManager{}
	m.StartWatcher(func(stop <-chan struct{}) {
		watchers.StartApplyWatcher(stop, events, apply)
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	m.StopAll()
	return nil
}
