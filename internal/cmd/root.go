package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marikmarie/mtnvas/internal/config"
)

// defaultConfigPath is swapped by tests
var defaultConfigPath = config.DefaultPath

// NewRootCommand builds the wakanet command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "wakanet",
		Short: "WakaNet dealer portal client",
		Long: `wakanet manages the MTN WakaNet dealer network from the terminal.

It signs you in to the portal backend, keeps the session alive between
commands, and lets you manage dealers, agents, shops, device stock, sales
reports and bundle activations. 'wakanet console' opens an interactive view
that signs you out after a period of inactivity.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default is $HOME/.wakanet/config.yaml)")
	pf.String("api-url", "", "portal backend base URL (overrides api.base_url)")
	pf.StringP("output", "o", "", "output format: table, text, json, yaml (default from defaults.format)")
	pf.Bool("no-color", false, "disable colored output")
	pf.BoolP("quiet", "q", false, "suppress notifications")
	pf.String("log-level", "", "log level: debug, info, warn, error (overrides logging.level)")
	pf.String("log-format", "", "log format: text, json (overrides logging.format)")
	pf.String("metrics-textfile", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		newAuthCmd(),
		newDealersCmd(),
		newAgentsCmd(),
		newShopsCmd(),
		newStocksCmd(),
		newSalesCmd(),
		newBundlesCmd(),
		newConfigCmd(),
		newConsoleCmd(),
		newDoctorCmd(),
		newVersionCmd(),
		newCompletionCmd(root),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, which is cancelled on
// interrupt by main
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
