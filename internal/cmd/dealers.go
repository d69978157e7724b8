package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marikmarie/mtnvas/internal/forms"
	"github.com/marikmarie/mtnvas/internal/platform"
	"github.com/marikmarie/mtnvas/internal/query"
	"github.com/marikmarie/mtnvas/internal/ux"
)

const dealersKey query.Key = "dealers"

func newDealersCmd() *cobra.Command {
	dealersCmd := &cobra.Command{
		Use:     "dealers",
		Aliases: []string{"dealer"},
		Short:   "Manage dealers",
		Long: `List, register, edit and remove dealers.

Examples:
  wakanet dealers list --region Central
  wakanet dealers create --name "Acme Phones" --contact "Jane Doe" \
      --phone 0772123456 --email acme@example.com --region Central --category wakanet
  wakanet dealers delete D-1042`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List dealers",
		Args:  cobra.NoArgs,
		RunE:  withApp(runDealersList),
	}
	listCmd.Flags().String("search", "", "filter by name")
	listCmd.Flags().String("category", "", "filter by category (wakanet, enterprise, both)")
	listCmd.Flags().String("region", "", "filter by region")

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a dealer",
		Args:  cobra.NoArgs,
		RunE:  withApp(runDealersCreate),
	}
	dealerFormFlags(createCmd)

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a dealer",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runDealersUpdate),
	}
	dealerFormFlags(updateCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a dealer",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runDealersDelete),
	}
	deleteCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	dealersCmd.AddCommand(listCmd, createCmd, updateCmd, deleteCmd)
	return dealersCmd
}

func dealerFormFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("name", "", "dealer name")
	f.String("contact", "", "contact person")
	f.String("phone", "", "contact phone number")
	f.String("email", "", "contact email")
	f.String("region", "", "region")
	f.String("category", forms.CategoryWakanet, "category: wakanet, enterprise, both")
}

func dealerFormFromFlags(cmd *cobra.Command) forms.DealerForm {
	f := cmd.Flags()
	name, _ := f.GetString("name")
	contact, _ := f.GetString("contact")
	phone, _ := f.GetString("phone")
	email, _ := f.GetString("email")
	region, _ := f.GetString("region")
	category, _ := f.GetString("category")
	return forms.DealerForm{
		Name:          name,
		ContactPerson: contact,
		Phone:         phone,
		Email:         email,
		Region:        region,
		Category:      category,
	}
}

func runDealersList(cmd *cobra.Command, args []string, a *App) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	search, _ := cmd.Flags().GetString("search")
	category, _ := cmd.Flags().GetString("category")
	region, _ := cmd.Flags().GetString("region")

	dealers, err := a.client(cmd.Context(), platform.Authenticated()).
		ListDealers(cmd.Context(), platform.DealerFilter{Search: search, Category: category, Region: region})
	if err != nil {
		return err
	}
	return a.render(ux.Dealers(dealers))
}

func runDealersCreate(cmd *cobra.Command, args []string, a *App) error {
	return saveDealer(cmd, a, "")
}

func runDealersUpdate(cmd *cobra.Command, args []string, a *App) error {
	return saveDealer(cmd, a, args[0])
}

// saveDealer creates the dealer when id is empty and updates it otherwise
func saveDealer(cmd *cobra.Command, a *App, id string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	form := dealerFormFromFlags(cmd)
	if err := forms.Validate(form); err != nil {
		return err
	}
	in, err := form.Input()
	if err != nil {
		return err
	}

	title := "Dealer created"
	if id != "" {
		title = "Dealer updated"
	}
	m := query.NewMutation(a.Cache, a.Factory, platform.Authenticated().WithSuccess(title),
		func(ctx context.Context, c *platform.Client, in platform.DealerInput) (*platform.Dealer, error) {
			if id == "" {
				return c.CreateDealer(ctx, in)
			}
			return c.UpdateDealer(ctx, id, in)
		},
		query.MutationOptions[*platform.Dealer]{Invalidates: []query.Key{dealersKey}})

	dealer, err := m.Mutate(cmd.Context(), in)
	if err != nil {
		return err
	}
	return a.render(ux.Dealers{*dealer})
}

func runDealersDelete(cmd *cobra.Command, args []string, a *App) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	id := args[0]
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes && !a.confirm(fmt.Sprintf("Delete dealer %s?", id)) {
		a.printf("Cancelled.\n")
		return nil
	}

	m := query.NewMutation(a.Cache, a.Factory, platform.Authenticated().WithSuccess("Dealer deleted"),
		func(ctx context.Context, c *platform.Client, id string) (struct{}, error) {
			return struct{}{}, c.DeleteDealer(ctx, id)
		},
		query.MutationOptions[struct{}]{Invalidates: []query.Key{dealersKey}})

	if _, err := m.Mutate(cmd.Context(), id); err != nil {
		return err
	}
	a.printf("✓ Deleted dealer %s\n", id)
	return nil
}
