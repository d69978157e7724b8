package cmd

import (
	"github.com/spf13/cobra"

	"github.com/marikmarie/mtnvas/internal/tui"
)

func newConsoleCmd() *cobra.Command {
	consoleCmd := &cobra.Command{
		Use:   "console",
		Short: "Open the interactive portal console",
		Long: `Open a full-screen view of dealers, agents, stock and bundle activations.

The console shows a sign-in form when no session is stored. It signs you out
after session.idle_timeout without a key press and returns to the sign-in
form whenever the backend reports that the session is no longer valid.

Keys:
  tab / shift+tab   switch tabs
  r                 refresh
  o                 sign out
  ?                 help
  q                 quit`,
		Args: cobra.NoArgs,
		RunE: runConsole,
	}
	consoleCmd.Flags().String("email", "", "prefill the sign-in email")
	return consoleCmd
}

func runConsole(cmd *cobra.Command, args []string) (err error) {
	bridge := tui.NewBridge()
	a, err := newApp(cmd, withUI(bridge, bridge))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	email, _ := cmd.Flags().GetString("email")
	return tui.Run(cmd.Context(), tui.Deps{
		Factory:     a.Factory,
		Cache:       a.Cache,
		Store:       a.Store,
		Bridge:      bridge,
		Logger:      a.Logger,
		IdleTimeout: a.Config.Session.IdleTimeout,
		Email:       email,
	})
}
