package cmd

import (
	"context"

	"github.com/spf13/cobra"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
	"github.com/marikmarie/mtnvas/internal/forms"
	"github.com/marikmarie/mtnvas/internal/platform"
	"github.com/marikmarie/mtnvas/internal/query"
	"github.com/marikmarie/mtnvas/internal/ux"
)

const agentsKey query.Key = "agents"

func newAgentsCmd() *cobra.Command {
	agentsCmd := &cobra.Command{
		Use:     "agents",
		Aliases: []string{"agent"},
		Short:   "Manage dealer agents",
		Long: `List, register, approve and reject agents.

New agents start as pending until an administrator approves them.

Examples:
  wakanet agents list --status pending
  wakanet agents create --name "Okello Peter" --phone 0772123456 --dealer D-1042
  wakanet agents approve A-77
  wakanet agents reject A-78 --reason "NIN does not match"`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		Args:  cobra.NoArgs,
		RunE:  withApp(runAgentsList),
	}
	listCmd.Flags().String("status", "", "filter by status (pending, approved, rejected)")
	listCmd.Flags().String("dealer", "", "filter by dealer ID")
	listCmd.Flags().String("search", "", "filter by name or phone")

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register an agent",
		Args:  cobra.NoArgs,
		RunE:  withApp(runAgentsCreate),
	}
	f := createCmd.Flags()
	f.String("name", "", "agent name")
	f.String("phone", "", "agent phone number")
	f.String("email", "", "agent email")
	f.String("nin", "", "national ID number")
	f.String("dealer", "", "dealer ID")
	f.String("shop", "", "shop ID")

	approveCmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a pending agent",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runAgentsApprove),
	}

	rejectCmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a pending agent",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runAgentsReject),
	}
	rejectCmd.Flags().String("reason", "", "reason shown to the dealer (required)")

	agentsCmd.AddCommand(listCmd, createCmd, approveCmd, rejectCmd)
	return agentsCmd
}

func runAgentsList(cmd *cobra.Command, args []string, a *App) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	status, _ := cmd.Flags().GetString("status")
	dealer, _ := cmd.Flags().GetString("dealer")
	search, _ := cmd.Flags().GetString("search")

	agents, err := a.client(cmd.Context(), platform.Authenticated()).
		ListAgents(cmd.Context(), platform.AgentFilter{Status: status, DealerID: dealer, Search: search})
	if err != nil {
		return err
	}
	return a.render(ux.Agents(agents))
}

func runAgentsCreate(cmd *cobra.Command, args []string, a *App) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	f := cmd.Flags()
	name, _ := f.GetString("name")
	phone, _ := f.GetString("phone")
	email, _ := f.GetString("email")
	nin, _ := f.GetString("nin")
	dealer, _ := f.GetString("dealer")
	shop, _ := f.GetString("shop")

	form := forms.AgentForm{Name: name, Phone: phone, Email: email, NIN: nin, DealerID: dealer, ShopID: shop}
	if err := forms.Validate(form); err != nil {
		return err
	}
	in, err := form.Input()
	if err != nil {
		return err
	}

	m := query.NewMutation(a.Cache, a.Factory, platform.Authenticated().WithSuccess("Agent registered"),
		func(ctx context.Context, c *platform.Client, in platform.AgentInput) (*platform.Agent, error) {
			return c.CreateAgent(ctx, in)
		},
		query.MutationOptions[*platform.Agent]{Invalidates: []query.Key{agentsKey}})

	agent, err := m.Mutate(cmd.Context(), in)
	if err != nil {
		return err
	}
	return a.render(ux.Agents{*agent})
}

type agentDecision struct {
	id     string
	reason string
}

func runAgentsApprove(cmd *cobra.Command, args []string, a *App) error {
	return decideAgent(cmd, a, agentDecision{id: args[0]}, "Agent approved")
}

func runAgentsReject(cmd *cobra.Command, args []string, a *App) error {
	reason, _ := cmd.Flags().GetString("reason")
	if reason == "" {
		return perrors.NewValidationError("reason is required when rejecting an agent").
			WithSuggestion("Pass --reason \"...\"")
	}
	return decideAgent(cmd, a, agentDecision{id: args[0], reason: reason}, "Agent rejected")
}

func decideAgent(cmd *cobra.Command, a *App, d agentDecision, title string) error {
	if err := a.requireSession(); err != nil {
		return err
	}

	m := query.NewMutation(a.Cache, a.Factory, platform.Authenticated().WithSuccess(title),
		func(ctx context.Context, c *platform.Client, d agentDecision) (*platform.Agent, error) {
			if d.reason == "" {
				return c.ApproveAgent(ctx, d.id)
			}
			return c.RejectAgent(ctx, d.id, d.reason)
		},
		query.MutationOptions[*platform.Agent]{Invalidates: []query.Key{agentsKey}})

	agent, err := m.Mutate(cmd.Context(), d)
	if err != nil {
		return err
	}
	return a.render(ux.Agents{*agent})
}
