package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
	"github.com/marikmarie/mtnvas/internal/platform"
	"github.com/marikmarie/mtnvas/internal/ux"
)

const dateLayout = "2006-01-02"

func newSalesCmd() *cobra.Command {
	salesCmd := &cobra.Command{
		Use:   "sales",
		Short: "Sales reports",
		Long: `Query device sales and export them as CSV.

Dates use YYYY-MM-DD. Without --from the report starts 30 days ago; without
--to it ends today.

Examples:
  wakanet sales report --from 2025-01-01 --to 2025-01-31 --dealer D-1042
  wakanet sales export --from 2025-01-01 --dest january.csv`,
	}

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Show a sales report",
		Args:  cobra.NoArgs,
		RunE:  withApp(runSalesReport),
	}
	salesQueryFlags(reportCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export sales as CSV",
		Args:  cobra.NoArgs,
		RunE:  withApp(runSalesExport),
	}
	salesQueryFlags(exportCmd)
	addExportFlags(exportCmd)

	salesCmd.AddCommand(reportCmd, exportCmd)
	return salesCmd
}

func salesQueryFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "first day (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "last day (YYYY-MM-DD)")
	cmd.Flags().String("dealer", "", "only sales of this dealer")
	cmd.Flags().String("agent", "", "only sales by this agent")
}

func salesQueryFromFlags(cmd *cobra.Command, now time.Time) (platform.SalesQuery, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	dealer, _ := cmd.Flags().GetString("dealer")
	agent, _ := cmd.Flags().GetString("agent")

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	q := platform.SalesQuery{
		From:     today.AddDate(0, 0, -30),
		To:       today,
		DealerID: dealer,
		AgentID:  agent,
	}

	var err error
	if from != "" {
		if q.From, err = time.ParseInLocation(dateLayout, from, now.Location()); err != nil {
			return q, invalidDate("from", from)
		}
	}
	if to != "" {
		if q.To, err = time.ParseInLocation(dateLayout, to, now.Location()); err != nil {
			return q, invalidDate("to", to)
		}
	}
	if q.To.Before(q.From) {
		return q, perrors.NewValidationError(fmt.Sprintf("--to %s is before --from %s",
			q.To.Format(dateLayout), q.From.Format(dateLayout)))
	}
	return q, nil
}

func invalidDate(flag, value string) error {
	return perrors.NewValidationError(fmt.Sprintf("--%s %q is not a date", flag, value)).
		WithSuggestion("Use the YYYY-MM-DD format, e.g. 2025-01-31")
}

func runSalesReport(cmd *cobra.Command, args []string, a *App) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	q, err := salesQueryFromFlags(cmd, time.Now())
	if err != nil {
		return err
	}

	report, err := a.client(cmd.Context(), platform.Authenticated()).SalesReport(cmd.Context(), q)
	if err != nil {
		return err
	}

	sales := ux.Sales{SalesReport: report}
	if a.structured() {
		return a.render(report)
	}
	if err := a.render(sales); err != nil {
		return err
	}
	// text output already is the summary
	if a.Config.Defaults.Format != "text" {
		fmt.Fprintln(a.out, sales.String())
	}
	return nil
}

func runSalesExport(cmd *cobra.Command, args []string, a *App) error {
	q, err := salesQueryFromFlags(cmd, time.Now())
	if err != nil {
		return err
	}
	return runExport(cmd, a, platform.SalesExportPath, q.Values())
}
