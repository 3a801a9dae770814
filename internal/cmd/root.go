package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/hoppxi/adjust-brightness/internal/dialog"
	"github.com/hoppxi/adjust-brightness/internal/manager"
	"github.com/hoppxi/adjust-brightness/internal/notify"
	"github.com/hoppxi/adjust-brightness/pkg/operation"
	"github.com/spf13/cobra"
)

var Version = "0.1.0"

const installHint = `Please install xrandr with your package manager.
Debian: x11-xserver-utils
Arch: xorg-xrandr
Fedora: xrandr`

type notifier interface {
	Brightness(display string, level int) error
}

// app holds the state shared by every command of one invocation.
type app struct {
	configPath string
	verbose    bool

	config   *manager.ConfigManager
	settings manager.Settings
	backend  operation.Backend
	display  *operation.Display
	prompter dialog.Prompter
	notifier notifier
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "adjust-brightness",
		Version: Version,
		Short:   "Adjust screen brightness using xrandr",
		Long: `adjust-brightness reads and sets the brightness of connected displays through xrandr.
Without a subcommand it opens the brightness dialog.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDialog(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default "+manager.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log every step to stderr")

	rootCmd.AddCommand(newDialogCmd(a))
	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newGetCmd(a))
	rootCmd.AddCommand(newSetCmd(a))
	rootCmd.AddCommand(newApplyCmd(a))
	rootCmd.AddCommand(newSetupCmd(a))
	return rootCmd
}

// execute runs root and releases what the commands opened.
func (a *app) execute(ctx context.Context, root *cobra.Command) error {
	defer a.close()
	return root.ExecuteContext(ctx)
}

func (a *app) close() {
	if c, ok := a.notifier.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Printf("Failed to close notifier: %v", err)
		}
	}
}

func Execute() {
	a := &app{}
	if err := a.execute(context.Background(), newRootCmd(a)); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) init(cmd *cobra.Command) error {
	log.SetPrefix("adjust-brightness: ")
	log.SetOutput(io.Discard)
	if a.verbose {
		log.SetOutput(cmd.ErrOrStderr())
	}

	a.config = manager.NewConfigManager(a.configPath)
	settings, err := a.config.Settings()
	if err != nil {
		// setup is how a broken config gets replaced
		if cmd.Name() != "setup" {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Ignoring current config: %v\n", err)
		settings = manager.DefaultSettings()
	}
	a.settings = settings
	if settings.Verbose {
		log.SetOutput(cmd.ErrOrStderr())
	}

	if a.backend == nil {
		a.backend = operation.NewXrandrBackend(settings.Tool)
	}
	a.display = operation.NewDisplay(a.backend)
	a.display.Timeout = settings.TimeoutDuration()

	if !needsTool(cmd) {
		return nil
	}
	if err := a.display.Available(); err != nil {
		return fmt.Errorf("%w\n%s", err, installHint)
	}
	return nil
}

func needsTool(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "setup", "help", "completion":
		return false
	}
	return !(cmd.HasParent() && cmd.Parent().Name() == "completion")
}

// announce shows a desktop notification for an applied level. Failures only
// get logged.
func (a *app) announce(display string, level int) {
	if !a.settings.Notify {
		return
	}
	if a.notifier == nil {
		n, err := notify.New()
		if err != nil {
			log.Printf("Notifications unavailable: %v", err)
			a.settings.Notify = false
			return
		}
		a.notifier = n
	}
	if err := a.notifier.Brightness(display, level); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}
