package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marikmarie/mtnvas/internal/forms"
	"github.com/marikmarie/mtnvas/internal/platform"
	"github.com/marikmarie/mtnvas/internal/query"
	"github.com/marikmarie/mtnvas/internal/ux"
)

const shopsKey query.Key = "shops"

func newShopsCmd() *cobra.Command {
	shopsCmd := &cobra.Command{
		Use:     "shops",
		Aliases: []string{"shop"},
		Short:   "Manage dealer shops",
		Long: `List, open and edit the shops that belong to a dealer.

Examples:
  wakanet shops list --dealer D-1042
  wakanet shops create --name "Kampala Road" --dealer D-1042 --location "Plot 12" --region Central`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List shops",
		Args:  cobra.NoArgs,
		RunE:  withApp(runShopsList),
	}
	listCmd.Flags().String("dealer", "", "only shops of this dealer")

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Open a shop",
		Args:  cobra.NoArgs,
		RunE:  withApp(runShopsCreate),
	}
	shopFormFlags(createCmd)

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a shop",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runShopsUpdate),
	}
	shopFormFlags(updateCmd)

	shopsCmd.AddCommand(listCmd, createCmd, updateCmd)
	return shopsCmd
}

func shopFormFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("name", "", "shop name")
	f.String("dealer", "", "dealer ID")
	f.String("location", "", "street address or landmark")
	f.String("region", "", "region")
}

func runShopsList(cmd *cobra.Command, args []string, a *App) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	dealer, _ := cmd.Flags().GetString("dealer")

	shops, err := a.client(cmd.Context(), platform.Authenticated()).ListShops(cmd.Context(), dealer)
	if err != nil {
		return err
	}
	return a.render(ux.Shops(shops))
}

func runShopsCreate(cmd *cobra.Command, args []string, a *App) error {
	return saveShop(cmd, a, "")
}

func runShopsUpdate(cmd *cobra.Command, args []string, a *App) error {
	return saveShop(cmd, a, args[0])
}

func saveShop(cmd *cobra.Command, a *App, id string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	f := cmd.Flags()
	name, _ := f.GetString("name")
	dealer, _ := f.GetString("dealer")
	location, _ := f.GetString("location")
	region, _ := f.GetString("region")

	form := forms.ShopForm{Name: name, DealerID: dealer, Location: location, Region: region}
	if err := forms.Validate(form); err != nil {
		return err
	}
	in, err := form.Input()
	if err != nil {
		return err
	}

	title := "Shop created"
	if id != "" {
		title = "Shop updated"
	}
	m := query.NewMutation(a.Cache, a.Factory, platform.Authenticated().WithSuccess(title),
		func(ctx context.Context, c *platform.Client, in platform.ShopInput) (*platform.Shop, error) {
			if id == "" {
				return c.CreateShop(ctx, in)
			}
			return c.UpdateShop(ctx, id, in)
		},
		query.MutationOptions[*platform.Shop]{Invalidates: []query.Key{shopsKey}})

	shop, err := m.Mutate(cmd.Context(), in)
	if err != nil {
		return err
	}
	return a.render(ux.Shops{*shop})
}
