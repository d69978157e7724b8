package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	perrors "github.com/marikmarie/mtnvas/internal/errors"
	"github.com/marikmarie/mtnvas/internal/forms"
	"github.com/marikmarie/mtnvas/internal/platform"
	"github.com/marikmarie/mtnvas/internal/progress"
	"github.com/marikmarie/mtnvas/internal/query"
	"github.com/marikmarie/mtnvas/internal/ux"
)

const stocksKey query.Key = "stocks"

// maxReportedIMEIs caps the invalid lines listed in an error
const maxReportedIMEIs = 10

func newStocksCmd() *cobra.Command {
	stocksCmd := &cobra.Command{
		Use:     "stocks",
		Aliases: []string{"stock"},
		Short:   "Manage device inventory",
		Long: `List device stock, upload IMEI files and export inventory as CSV.

IMEI files hold one IMEI per line (or per row, first column). Every IMEI is
checked locally before anything is sent; a file with invalid or duplicate
entries is rejected as a whole.

Examples:
  wakanet stocks list --status available
  wakanet stocks upload devices.csv --dealer D-1042
  wakanet stocks export --dest ./exports/`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List device stock",
		Args:  cobra.NoArgs,
		RunE:  withApp(runStocksList),
	}
	stockFilterFlags(listCmd)

	uploadCmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file of IMEIs for a dealer",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(runStocksUpload),
	}
	uploadCmd.Flags().String("dealer", "", "dealer ID receiving the devices (required)")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export inventory as CSV",
		Args:  cobra.NoArgs,
		RunE:  withApp(runStocksExport),
	}
	stockFilterFlags(exportCmd)
	addExportFlags(exportCmd)

	stocksCmd.AddCommand(listCmd, uploadCmd, exportCmd)
	return stocksCmd
}

func stockFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("status", "", "filter by status")
	cmd.Flags().String("dealer", "", "filter by dealer ID")
	cmd.Flags().String("imei", "", "find a single device")
}

func stockFilterFromFlags(cmd *cobra.Command) platform.StockFilter {
	status, _ := cmd.Flags().GetString("status")
	dealer, _ := cmd.Flags().GetString("dealer")
	imei, _ := cmd.Flags().GetString("imei")
	return platform.StockFilter{Status: status, DealerID: dealer, IMEI: imei}
}

func runStocksList(cmd *cobra.Command, args []string, a *App) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	items, err := a.client(cmd.Context(), platform.Authenticated()).
		ListStocks(cmd.Context(), stockFilterFromFlags(cmd))
	if err != nil {
		return err
	}
	return a.render(ux.Stocks(items))
}

func runStocksExport(cmd *cobra.Command, args []string, a *App) error {
	return runExport(cmd, a, platform.StocksExportPath, stockFilterFromFlags(cmd).Values())
}

// uploadSummary is printed after an IMEI upload
type uploadSummary struct {
	File     string   `json:"file" yaml:"file"`
	Accepted int      `json:"accepted" yaml:"accepted"`
	Rejected int      `json:"rejected" yaml:"rejected"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func (s uploadSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Uploaded %s: %d accepted, %d rejected", s.File, s.Accepted, s.Rejected)
	for _, e := range s.Errors {
		fmt.Fprintf(&b, "\n  • %s", e)
	}
	return b.String()
}

func runStocksUpload(cmd *cobra.Command, args []string, a *App) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	dealer, _ := cmd.Flags().GetString("dealer")
	if dealer == "" {
		return perrors.NewValidationError("dealer is required").WithSuggestion("Pass --dealer <id>")
	}

	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return perrors.NewFileNotFoundError(path)
		}
		return perrors.Wrap(perrors.ErrCodeFileReadFailed, fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	scan, err := forms.ScanIMEIs(f)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeFileReadFailed, fmt.Sprintf("failed to read %s", path), err)
	}
	if err := imeiScanError(path, scan); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return perrors.Wrap(perrors.ErrCodeFileReadFailed, fmt.Sprintf("failed to rewind %s", path), err)
	}

	client := a.client(cmd.Context(), platform.Authenticated().WithSuccess("IMEIs uploaded"))
	res, err := progress.Run(a.progressConfig(fmt.Sprintf("Uploading %d IMEIs", len(scan.Valid))), func() (*platform.UploadResult, error) {
		return client.UploadIMEIs(cmd.Context(), dealer, filepath.Base(path), f)
	})
	if err != nil {
		return err
	}
	if err := a.Cache.Invalidate(cmd.Context(), stocksKey); err != nil {
		a.Logger.WithError(err).Warn("refetch after upload failed")
	}

	return a.render(uploadSummary{
		File:     filepath.Base(path),
		Accepted: res.Accepted,
		Rejected: res.Rejected,
		Errors:   res.Errors,
	})
}

// imeiScanError reports the first problems found in an IMEI file
func imeiScanError(path string, scan forms.IMEIScan) error {
	if len(scan.Valid) == 0 && len(scan.Invalid) == 0 {
		return perrors.New(perrors.ErrCodeInvalidIMEI, fmt.Sprintf("%s contains no IMEIs", path))
	}
	if scan.OK() {
		return nil
	}

	var problems []string
	for _, inv := range scan.Invalid {
		problems = append(problems, fmt.Sprintf("line %d: %q is not a valid IMEI", inv.Line, inv.Value))
	}
	for _, dup := range scan.Duplicates {
		problems = append(problems, fmt.Sprintf("%s appears more than once", dup))
	}
	total := len(problems)
	if total > maxReportedIMEIs {
		problems = append(problems[:maxReportedIMEIs], fmt.Sprintf("... and %d more", total-maxReportedIMEIs))
	}

	return perrors.New(perrors.ErrCodeInvalidIMEI,
		fmt.Sprintf("%s has %d problem(s):\n  %s", path, total, strings.Join(problems, "\n  "))).
		WithSuggestion("Fix or remove the listed lines and upload again")
}
