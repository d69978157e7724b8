package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marikmarie/mtnvas/internal/forms"
	"github.com/marikmarie/mtnvas/internal/platform"
	"github.com/marikmarie/mtnvas/internal/query"
	"github.com/marikmarie/mtnvas/internal/ux"
)

const activationsKey query.Key = "bundle-activations"

func newBundlesCmd() *cobra.Command {
	bundlesCmd := &cobra.Command{
		Use:     "bundles",
		Aliases: []string{"bundle"},
		Short:   "Activate and renew data bundles",
		Long: `List, activate and renew bundle activations on subscriber lines.

Examples:
  wakanet bundles list --msisdn 0772123456
  wakanet bundles activate --msisdn 0772123456 --bundle WKN30
  wakanet bundles renew B-901`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List bundle activations",
		Args:  cobra.NoArgs,
		RunE:  withApp(runBundlesList),
	}
	listCmd.Flags().String("msisdn", "", "only activations on this line")

	activateCmd := &cobra.Command{
		Use:   "activate",
		Short: "Activate a bundle",
		Args:  cobra.NoArgs,
		RunE:  withApp(runBundlesActivate),
	}
	activateCmd.Flags().String("msisdn", "", "subscriber line")
	activateCmd.Flags().String("bundle", "", "bundle code")
	activateCmd.Flags().String("agent", "", "agent ID performing the activation")

	renewCmd := &cobra.Command{
		Use:   "renew <id>",
		Short: "Renew an activation",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runBundlesRenew),
	}

	bundlesCmd.AddCommand(listCmd, activateCmd, renewCmd)
	return bundlesCmd
}

func runBundlesList(cmd *cobra.Command, args []string, a *App) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	msisdn, _ := cmd.Flags().GetString("msisdn")
	if msisdn != "" {
		normalized, err := forms.NormalizePhone(msisdn, forms.CountryCode())
		if err != nil {
			return err
		}
		msisdn = normalized
	}

	activations, err := a.client(cmd.Context(), platform.Authenticated()).
		ListBundleActivations(cmd.Context(), msisdn)
	if err != nil {
		return err
	}
	return a.render(ux.Activations(activations))
}

func runBundlesActivate(cmd *cobra.Command, args []string, a *App) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	msisdn, _ := cmd.Flags().GetString("msisdn")
	bundle, _ := cmd.Flags().GetString("bundle")
	agent, _ := cmd.Flags().GetString("agent")

	form := forms.BundleActivationForm{MSISDN: msisdn, BundleCode: bundle, AgentID: agent}
	if err := forms.Validate(form); err != nil {
		return err
	}
	in, err := form.Input()
	if err != nil {
		return err
	}

	m := query.NewMutation(a.Cache, a.Factory, platform.Authenticated().WithSuccess("Bundle activated"),
		func(ctx context.Context, c *platform.Client, in platform.ActivationInput) (*platform.BundleActivation, error) {
			return c.ActivateBundle(ctx, in)
		},
		query.MutationOptions[*platform.BundleActivation]{Invalidates: []query.Key{activationsKey}})

	activation, err := m.Mutate(cmd.Context(), in)
	if err != nil {
		return err
	}
	return a.render(ux.Activations{*activation})
}

func runBundlesRenew(cmd *cobra.Command, args []string, a *App) error {
	if err := a.requireSession(); err != nil {
		return err
	}

	m := query.NewMutation(a.Cache, a.Factory, platform.Authenticated().WithSuccess("Bundle renewed"),
		func(ctx context.Context, c *platform.Client, id string) (*platform.BundleActivation, error) {
			return c.RenewBundle(ctx, id)
		},
		query.MutationOptions[*platform.BundleActivation]{Invalidates: []query.Key{activationsKey}})

	activation, err := m.Mutate(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return a.render(ux.Activations{*activation})
}
