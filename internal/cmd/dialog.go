package cmd

import (
	"github.com/hoppxi/adjust-brightness/internal/dialog"
	"github.com/spf13/cobra"
)

func newDialogCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dialog",
		Short: "Pick a display and a brightness level in a dialog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDialog(cmd)
		},
	}
}

func (a *app) runDialog(cmd *cobra.Command) error {
	prompter := a.prompter
	if prompter == nil {
		prompter = dialog.Zenity{}
	}

	session := &dialog.Session{
		Controller: a.display,
		Prompter:   prompter,
		MinLevel:   a.settings.MinLevel,
		OnApplied:  a.announce,
	}
	return session.Run(cmd.Context())
}
