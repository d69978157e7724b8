package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/marikmarie/mtnvas/internal/config"
	perrors "github.com/marikmarie/mtnvas/internal/errors"
	"github.com/marikmarie/mtnvas/internal/export"
	"github.com/marikmarie/mtnvas/internal/forms"
	"github.com/marikmarie/mtnvas/internal/log"
	"github.com/marikmarie/mtnvas/internal/metrics"
	"github.com/marikmarie/mtnvas/internal/notify"
	"github.com/marikmarie/mtnvas/internal/platform"
	"github.com/marikmarie/mtnvas/internal/progress"
	"github.com/marikmarie/mtnvas/internal/query"
	"github.com/marikmarie/mtnvas/internal/session"
	"github.com/marikmarie/mtnvas/internal/ux"
	"github.com/marikmarie/mtnvas/internal/version"
)

// App is the wired client a command works with
type App struct {
	Cmd      *CommandContext
	Config   *config.Config
	Logger   *log.Logger
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Store    *session.Store
	Factory  *platform.Factory
	Cache    *query.Cache
	Exporter *export.Exporter

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

type appOptions struct {
	navigator session.Navigator
	notifier  notify.Notifier
}

type appOption func(*appOptions)

// withUI routes teardown redirects and notifications somewhere other than
// stderr, e.g. into the console
func withUI(nav session.Navigator, n notify.Notifier) appOption {
	return func(o *appOptions) {
		o.navigator = nav
		o.notifier = n
	}
}

// newApp loads configuration and wires every component. The caller must
// Close the app.
func newApp(cmd *cobra.Command, opts ...appOption) (*App, error) {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to create command context: %w", err)
	}

	if err := config.LoadEnvFile(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.Load(cmdCtx.ResolvedConfigPath())
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cfg, cmdCtx); err != nil {
		return nil, err
	}

	a := &App{
		Cmd:    cmdCtx,
		Config: cfg,
		in:     cmd.InOrStdin(),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}

	info := version.GetInfo()
	a.Logger = log.New(log.Config{
		Level:          log.ParseLevel(cfg.Logging.Level),
		Format:         log.ParseFormat(cfg.Logging.Format),
		Output:         log.NewOutput(a.errOut),
		ServiceName:    "wakanet",
		ServiceVersion: info.Version,
	})
	log.SetDefaultLogger(a.Logger)

	a.Registry, a.Metrics = metrics.NewRegistry()
	forms.SetCountryCode(cfg.Phone.CountryCode)

	o := appOptions{
		navigator: session.NavigatorFunc(func(reason session.Reason) {
			fmt.Fprintf(a.errOut, "%s Run 'wakanet auth login' to continue.\n", teardownText(reason))
		}),
		notifier: a.terminalNotifier(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	// dropped carries the reason a stale session was discarded on rehydrate
	dropped := make(chan session.Reason, 1)
	a.Store = session.NewStore(
		session.NewFilePersister(cfg.Session.StateDir),
		session.WithIdleTimeout(cfg.Session.IdleTimeout),
		session.WithLogger(a.Logger),
		session.WithTeardownObserver(func(r session.Reason) {
			select {
			case dropped <- r:
			default:
			}
			a.Metrics.SessionEnded(string(r))
		}),
	)
	if a.rehydrate(cmd.Context()) {
		select {
		case r := <-dropped:
			o.navigator.RedirectToSignIn(r)
		default:
		}
	}

	httpClient := &http.Client{Timeout: cfg.API.Timeout}
	a.Factory = platform.NewFactory(platform.FactoryConfig{
		BaseURL:              cfg.API.BaseURL,
		HTTPClient:           httpClient,
		Session:              a.Store,
		Navigator:            o.navigator,
		Notifier:             o.notifier,
		SuccessNotifications: cfg.Notifications.SuccessEnabled,
		Defaults: platform.NotifyOptions{
			SuccessColor: cfg.Notifications.SuccessColor,
			ErrorColor:   cfg.Notifications.ErrorColor,
			AutoClose:    cfg.Notifications.AutoClose,
		},
		UserAgent: info.UserAgent(),
		Logger:    a.Logger,
		Metrics:   a.Metrics,
	})

	a.Cache = query.NewCache(query.DefaultStaleTime, query.DefaultCleanupInterval,
		query.WithLogger(a.Logger), query.WithMetrics(a.Metrics))
	a.Exporter = export.New(
		export.WithRevokeAfter(cfg.Export.RevokeAfter),
		export.WithLogger(a.Logger),
		export.WithMetrics(a.Metrics),
	)

	return a, nil
}

func applyFlags(cfg *config.Config, c *CommandContext) error {
	overrides := []struct{ key, value string }{
		{"api.base_url", c.APIURL},
		{"logging.level", c.LogLevel},
		{"logging.format", c.LogFormat},
		{"defaults.format", c.Format},
	}
	for _, o := range overrides {
		if o.value == "" {
			continue
		}
		if err := cfg.Set(o.key, o.value); err != nil {
			return err
		}
	}
	if c.NoColor {
		cfg.Defaults.NoColor = true
	}
	return cfg.Validate()
}

// rehydrate restores the persisted session and counts this invocation as
// activity. A dropped or unreadable session leaves the store signed out;
// commands that need one fail with AUTH-001. It reports whether a stale
// session was dropped.
func (a *App) rehydrate(ctx context.Context) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, a.Config.Session.RehydrateTimeout)
	defer cancel()

	if err := a.Store.Rehydrate(ctx); err != nil {
		if errors.Is(err, perrors.ErrSessionExpired) {
			a.Logger.Info("stored session expired", "error", err.Error())
			return true
		}
		a.Logger.WithError(err).Warn("could not restore session")
		return false
	}
	a.Store.Touch()
	return false
}

func (a *App) terminalNotifier() notify.Notifier {
	if a.Cmd.Quiet {
		return notify.Discard
	}
	var opts []notify.TerminalOption
	if a.Config.Defaults.NoColor {
		opts = append(opts, notify.WithoutColor())
	}
	return notify.NewTerminalNotifier(a.errOut, opts...)
}

// Close revokes pending exports, flushes logs and writes the metrics
// textfile if one was requested
func (a *App) Close() error {
	var errs []error
	if err := a.Exporter.Close(); err != nil {
		errs = append(errs, err)
	}
	if path := a.Cmd.MetricsTextfile; path != "" {
		if err := metrics.WriteTextfile(path, a.Registry); err != nil {
			errs = append(errs, perrors.Wrap(perrors.ErrCodeFileWriteFailed, "failed to write metrics textfile", err))
		}
	}
	_ = a.Logger.Sync()
	log.SetDefaultLogger(nil)
	return errors.Join(errs...)
}

// client builds a Client for one call
func (a *App) client(ctx context.Context, desc platform.Descriptor) *platform.Client {
	return a.Factory.New(ctx, desc)
}

// requireSession fails fast when nobody is signed in
func (a *App) requireSession() error {
	if !a.Store.Authenticated() {
		return perrors.NewAuthRequiredError()
	}
	return nil
}

// render writes data in the configured output format
func (a *App) render(data interface{}) error {
	f, err := ux.NewFormatter(a.Config.Defaults.Format, &ux.FormatterOptions{
		Writer:  a.out,
		NoColor: a.Config.Defaults.NoColor,
	})
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeConfigInvalid, err.Error(), err)
	}
	return f.Format(data)
}

// structured reports whether output is machine-readable, in which case
// human messages are kept off stdout
func (a *App) structured() bool {
	switch a.Config.Defaults.Format {
	case "json", "yaml":
		return true
	}
	return false
}

// printf writes a human message unless output is structured
func (a *App) printf(format string, args ...interface{}) {
	if a.structured() {
		return
	}
	fmt.Fprintf(a.out, format, args...)
}

// progressConfig configures the spinner shown on stderr during slow calls. It only
// draws on a terminal and never for structured or quiet runs.
func (a *App) progressConfig(message string) progress.Config {
	enabled := !a.Cmd.Quiet && !a.structured()
	if f, ok := a.errOut.(*os.File); ok {
		info, err := f.Stat()
		enabled = enabled && err == nil && info.Mode()&os.ModeCharDevice != 0
	} else {
		enabled = false
	}
	return progress.Config{Writer: a.errOut, Message: message, Enabled: enabled}
}

func (a *App) confirm(message string) bool {
	return ux.Confirm(a.in, a.errOut, message, false)
}

func teardownText(reason session.Reason) string {
	switch reason {
	case session.ReasonIdle:
		return "You were signed out after a period of inactivity."
	case session.ReasonTokenExpired:
		return "Your sign-in token has expired."
	case session.ReasonSignOut:
		return "You have signed out."
	default:
		return "Your session has expired."
	}
}

// withApp runs fn with a wired App and closes it afterwards
func withApp(fn func(cmd *cobra.Command, args []string, a *App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		start := time.Now()
		defer func() {
			a.Metrics.ObserveCommand(cmd.CommandPath(), err == nil, time.Since(start))
			if cerr := a.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args, a)
	}
}
