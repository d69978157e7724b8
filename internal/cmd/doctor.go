package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marikmarie/mtnvas/internal/config"
	"github.com/marikmarie/mtnvas/internal/health"
	"github.com/marikmarie/mtnvas/internal/platform"
	"github.com/marikmarie/mtnvas/internal/session"
	"github.com/marikmarie/mtnvas/internal/ux"
	"github.com/marikmarie/mtnvas/internal/version"
)

func newDoctorCmd() *cobra.Command {
	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run client diagnostics",
		Long: `Check that wakanet is configured and can reach the portal backend.

Checks include:
  • Configuration file loads and validates
  • Session state directory is writable
  • Stored session is present and its token has not expired
  • Backend answers at api.base_url

Examples:
  # Run diagnostics
  wakanet doctor

  # Output as JSON for scripts
  wakanet doctor -o json
`,
		Args: cobra.NoArgs,
		RunE: runDoctor,
	}
	doctorCmd.Flags().Duration("timeout", health.DefaultTimeout, "timeout for each check")
	return doctorCmd
}

// doctorReport is the complete diagnostics report
type doctorReport struct {
	Status health.Status   `json:"status" yaml:"status"`
	Checks []health.Report `json:"checks" yaml:"checks"`
}

func (r doctorReport) Headers() []string {
	return []string{"CHECK", "STATUS", "MESSAGE", "LATENCY"}
}

func (r doctorReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Checks))
	for _, c := range r.Checks {
		rows = append(rows, []string{
			c.Name,
			c.Result.Status.String(),
			c.Result.Message,
			c.Result.Latency.Round(time.Millisecond).String(),
		})
	}
	return rows
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	path := cmdCtx.ResolvedConfigPath()

	// An invalid file is reported by the config check; the rest run on defaults
	_ = config.LoadEnvFile(".env")
	cfg, err := config.Load(path)
	if err != nil {
		cfg = config.Default()
	}
	if cmdCtx.APIURL != "" {
		cfg.API.BaseURL = strings.TrimRight(cmdCtx.APIURL, "/")
	}

	store := session.NewStore(
		session.NewFilePersister(cfg.Session.StateDir),
		session.WithIdleTimeout(cfg.Session.IdleTimeout),
	)
	rctx, cancel := context.WithTimeout(cmd.Context(), cfg.Session.RehydrateTimeout)
	_ = store.Rehydrate(rctx)
	cancel()

	// The backend check gets a factory without the session so that a 401
	// from it can never end the stored session
	unauthenticated := platform.NewFactory(platform.FactoryConfig{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  version.GetInfo().UserAgent(),
	})

	manager := health.NewManager(
		health.ConfigChecker{Path: path},
		health.StateDirChecker{Dir: cfg.Session.StateDir},
		health.SessionChecker{Store: store},
		health.BackendChecker{Factory: unauthenticated},
	).WithTimeout(timeout)

	reports := manager.Check(cmd.Context())
	report := doctorReport{Status: health.OverallStatus(reports), Checks: reports}

	format := cmdCtx.Format
	if format == "" {
		format = cfg.Defaults.Format
	}
	out := cmd.OutOrStdout()

	switch format {
	case "json", "yaml", "text":
		formatter, err := ux.NewFormatter(format, &ux.FormatterOptions{Writer: out, NoColor: cmdCtx.NoColor || cfg.Defaults.NoColor})
		if err != nil {
			return err
		}
		if err := formatter.Format(report); err != nil {
			return err
		}
	default:
		printDoctorReport(out, report)
	}

	if report.Status == health.StatusUnhealthy {
		return fmt.Errorf("health check failed: %s", strings.Join(failedChecks(reports), ", "))
	}
	return nil
}

func failedChecks(reports []health.Report) []string {
	var names []string
	for _, r := range reports {
		if r.Result.Status == health.StatusUnhealthy {
			names = append(names, r.Name)
		}
	}
	return names
}

func printDoctorReport(w io.Writer, report doctorReport) {
	for _, c := range report.Checks {
		fmt.Fprintf(w, "  %s %s: %s\n", statusIcon(c.Result.Status), c.Name, c.Result.Message)

		keys := make([]string, 0, len(c.Result.Details))
		for k := range c.Result.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "      %s: %v\n", k, c.Result.Details[k])
		}
		if c.Result.Suggestion != "" {
			fmt.Fprintf(w, "      → %s\n", c.Result.Suggestion)
		}
	}
	fmt.Fprintln(w)

	switch report.Status {
	case health.StatusHealthy:
		fmt.Fprintln(w, "✓ wakanet is ready to use")
	case health.StatusDegraded:
		fmt.Fprintln(w, "⚠ wakanet works with warnings")
	default:
		fmt.Fprintln(w, "✗ wakanet has issues that need attention")
	}
}

func statusIcon(s health.Status) string {
	switch s {
	case health.StatusHealthy:
		return "✓"
	case health.StatusDegraded:
		return "⚠"
	default:
		return "✗"
	}
}
