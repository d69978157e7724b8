package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/marikmarie/mtnvas/internal/forms"
	"github.com/marikmarie/mtnvas/internal/log"
	"github.com/marikmarie/mtnvas/internal/notify"
	"github.com/marikmarie/mtnvas/internal/platform"
	"github.com/marikmarie/mtnvas/internal/query"
	"github.com/marikmarie/mtnvas/internal/session"
	"github.com/marikmarie/mtnvas/internal/ux"
)

// ViewType represents the current view being displayed
type ViewType int

// View type constants
const (
	// ViewSignIn is the sign-in form every teardown redirects to
	ViewSignIn ViewType = iota
	// ViewData shows the resource tables
	ViewData
	// ViewHelp is the help screen
	ViewHelp
)

// Tab is a resource table in the data view
type Tab int

const (
	TabDealers Tab = iota
	TabAgents
	TabStocks
	TabBundles
	tabCount
)

var tabTitles = [tabCount]string{"Dealers", "Agents", "Stocks", "Bundles"}

// Keys of the cached queries behind each tab
var tabKeys = [tabCount]query.Key{"dealers", "agents", "stocks", "bundle-activations"}

func (t Tab) String() string {
	if t < 0 || t >= tabCount {
		return "unknown"
	}
	return tabTitles[t]
}

// Deps are the services the console works with
type Deps struct {
	Factory *platform.Factory
	Cache   *query.Cache
	Store   *session.Store
	Bridge  *Bridge
	Logger  *log.Logger
	// IdleTimeout signs the user out after this much inactivity
	IdleTimeout time.Duration
	// Email prefills the sign-in form
	Email string
}

type tabData struct {
	table   table.Model
	err     string
	loaded  bool
	loading bool
}

// Model represents the console state
type Model struct {
	ctx  context.Context
	deps Deps

	dealers *query.Query[[]platform.Dealer]
	agents  *query.Query[[]platform.Agent]
	stocks  *query.Query[[]platform.StockItem]
	bundles *query.Query[[]platform.BundleActivation]

	idle *session.IdleTimer
	// lastTouch is when key activity was last written to the store
	lastTouch time.Time

	// UI state
	currentView ViewType
	tab         Tab
	tabs        [tabCount]*tabData
	width       int
	height      int
	quitting    bool

	// Sign-in state
	email      textinput.Model
	password   textinput.Model
	focus      int
	signingIn  bool
	signInErr  string
	lastReason session.Reason

	user *session.User

	toasts    []toast
	nextToast int

	styles Styles
}

type toast struct {
	id int
	n  notify.Notification
}

// Styles contains lipgloss styles for the console
type Styles struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style
	Border    lipgloss.Style
	ActiveTab lipgloss.Style
	Tab       lipgloss.Style
	Help      lipgloss.Style
	Key       lipgloss.Style
	KeyDesc   lipgloss.Style
	Table     table.Styles
}

// DefaultStyles returns the default lipgloss styles
func DefaultStyles() Styles {
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("220")).
		Bold(false)

	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220")). // MTN yellow
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("220")).
			Padding(1, 2),
		ActiveTab: lipgloss.NewStyle().
			Background(lipgloss.Color("220")).
			Foreground(lipgloss.Color("0")).
			Bold(true).
			Padding(0, 1),
		Tab: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1),
		Key: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220")),
		KeyDesc: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Table: ts,
	}
}

// NewModel creates a console model. It starts on the data view when the
// store holds a session and on the sign-in view otherwise.
func NewModel(ctx context.Context, deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = log.DefaultLogger()
	}
	if deps.IdleTimeout <= 0 {
		deps.IdleTimeout = session.DefaultIdleTimeout
	}

	m := Model{
		ctx:    ctx,
		deps:   deps,
		styles: DefaultStyles(),
	}

	m.dealers = query.NewQuery(deps.Cache, deps.Factory, tabKeys[TabDealers], platform.Authenticated(),
		func(ctx context.Context, c *platform.Client) ([]platform.Dealer, error) {
			return c.ListDealers(ctx, platform.DealerFilter{})
		})
	m.agents = query.NewQuery(deps.Cache, deps.Factory, tabKeys[TabAgents], platform.Authenticated(),
		func(ctx context.Context, c *platform.Client) ([]platform.Agent, error) {
			return c.ListAgents(ctx, platform.AgentFilter{})
		})
	m.stocks = query.NewQuery(deps.Cache, deps.Factory, tabKeys[TabStocks], platform.Authenticated(),
		func(ctx context.Context, c *platform.Client) ([]platform.StockItem, error) {
			return c.ListStocks(ctx, platform.StockFilter{})
		})
	m.bundles = query.NewQuery(deps.Cache, deps.Factory, tabKeys[TabBundles], platform.Authenticated(),
		func(ctx context.Context, c *platform.Client) ([]platform.BundleActivation, error) {
			return c.ListBundleActivations(ctx, "")
		})

	for i := range m.tabs {
		t := table.New(table.WithFocused(true), table.WithHeight(10), table.WithWidth(100))
		t.SetStyles(m.styles.Table)
		m.tabs[i] = &tabData{table: t}
	}

	bridge := deps.Bridge
	m.idle = session.NewIdleTimer(deps.IdleTimeout, func() {
		if bridge != nil {
			bridge.send(idleMsg{})
		}
	})

	m.email = textinput.New()
	m.email.Placeholder = "you@example.com"
	m.email.Prompt = "Email    "
	m.email.SetValue(deps.Email)
	m.password = textinput.New()
	m.password.Prompt = "Password "
	m.password.EchoMode = textinput.EchoPassword
	m.password.EchoCharacter = '•'

	if deps.Store != nil && deps.Store.Authenticated() {
		m.currentView = ViewData
		m.user = deps.Store.User()
		m.lastTouch = time.Now()
	} else {
		m.currentView = ViewSignIn
		m.email.Focus()
	}
	return m
}

// Custom messages

// SignInRequiredMsg sends the console back to the sign-in view
type SignInRequiredMsg struct {
	Reason session.Reason
}

// ToastMsg shows a notification
type ToastMsg struct {
	Notification notify.Notification
}

type toastExpiredMsg struct{ id int }

type idleMsg struct{}

type loadedMsg struct {
	tabs [tabCount]loadResult
}

type loadResult struct {
	rows    [][]string
	headers []string
	err     error
	skipped bool
}

type signedInMsg struct {
	user *session.User
	err  error
}

// Init initializes the console (required by Bubble Tea)
func (m Model) Init() tea.Cmd {
	if m.currentView == ViewData {
		m.idle.Start()
		return m.loadAll()
	}
	return textinput.Blink
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, td := range m.tabs {
			td.table.SetHeight(max(5, msg.Height-12))
			td.table.SetWidth(max(40, msg.Width-4))
		}
		return m, nil

	case SignInRequiredMsg:
		return m.redirectToSignIn(msg.Reason), textinput.Blink

	case idleMsg:
		if m.currentView == ViewSignIn {
			return m, nil
		}
		return m, m.expire(session.ReasonIdle)

	case ToastMsg:
		m.nextToast++
		id := m.nextToast
		m.toasts = append(m.toasts, toast{id: id, n: msg.Notification})
		d := msg.Notification.AutoClose
		if d <= 0 {
			d = 3 * time.Second
		}
		return m, tea.Tick(d, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })

	case toastExpiredMsg:
		for i, t := range m.toasts {
			if t.id == msg.id {
				m.toasts = append(m.toasts[:i:i], m.toasts[i+1:]...)
				break
			}
		}
		return m, nil

	case loadedMsg:
		for i, res := range msg.tabs {
			if res.skipped {
				continue
			}
			td := m.tabs[i]
			td.loading = false
			if res.err != nil {
				td.err = res.err.Error()
				continue
			}
			td.err = ""
			td.loaded = true
			td.table.SetRows(nil)
			td.table.SetColumns(columns(res.headers, res.rows))
			td.table.SetRows(toRows(res.rows))
		}
		return m, nil

	case signedInMsg:
		m.signingIn = false
		if msg.err != nil {
			m.signInErr = signInMessage(msg.err)
			return m, nil
		}
		m.user = msg.user
		m.signInErr = ""
		m.lastReason = ""
		m.password.SetValue("")
		m.currentView = ViewData
		m.lastTouch = time.Now()
		m.idle.Start()
		return m, m.loadAll()
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	if m.currentView == ViewSignIn {
		return m.handleSignInKey(msg)
	}

	m.idle.Touch()
	m, touch := m.persistActivity()
	next, cmd := m.handleDataKey(msg)
	return next, tea.Batch(touch, cmd)
}

// persistActivity writes key activity to the store at most once per
// touchInterval so another wakanet process sees the session as active.
func (m Model) persistActivity() (Model, tea.Cmd) {
	store := m.deps.Store
	if store == nil || time.Since(m.lastTouch) < touchInterval(m.idle.Timeout()) {
		return m, nil
	}
	m.lastTouch = time.Now()
	return m, func() tea.Msg {
		store.Touch()
		return nil
	}
}

func touchInterval(idle time.Duration) time.Duration {
	return min(time.Minute, idle/4)
}

func (m Model) handleDataKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()

	case "?":
		if m.currentView == ViewHelp {
			m.currentView = ViewData
		} else {
			m.currentView = ViewHelp
		}
		return m, nil

	case "esc":
		m.currentView = ViewData
		return m, nil

	case "tab", "right", "l":
		m.tab = (m.tab + 1) % tabCount
		return m, nil

	case "shift+tab", "left", "h":
		m.tab = (m.tab + tabCount - 1) % tabCount
		return m, nil

	case "r":
		return m, m.refresh(m.tab)

	case "o":
		return m, m.expire(session.ReasonSignOut)
	}

	if m.currentView == ViewData {
		var cmd tea.Cmd
		td := m.tabs[m.tab]
		td.table, cmd = td.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleSignInKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.quit()
	case "tab", "shift+tab", "up", "down":
		m = m.setFocus(1 - m.focus)
		return m, textinput.Blink
	case "enter":
		if m.focus == 0 {
			m = m.setFocus(1)
			return m, textinput.Blink
		}
		return m.submitSignIn()
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m Model) setFocus(i int) Model {
	m.focus = i
	if i == 0 {
		m.email.Focus()
		m.password.Blur()
	} else {
		m.email.Blur()
		m.password.Focus()
	}
	return m
}

func (m Model) submitSignIn() (tea.Model, tea.Cmd) {
	if m.signingIn {
		return m, nil
	}
	form := forms.SignInForm{
		Email:    strings.TrimSpace(m.email.Value()),
		Password: m.password.Value(),
	}
	if err := forms.Validate(form); err != nil {
		m.signInErr = signInMessage(err)
		return m, nil
	}

	m.signingIn = true
	m.signInErr = ""
	ctx, factory := m.ctx, m.deps.Factory
	return m, func() tea.Msg {
		user, err := factory.SignIn(ctx, form.Email, form.Password)
		return signedInMsg{user: user, err: err}
	}
}

func (m Model) redirectToSignIn(reason session.Reason) Model {
	m.idle.Stop()
	m.unmountAll()

	m.user = nil
	m.lastReason = reason
	m.currentView = ViewSignIn
	m.signingIn = false
	m.password.SetValue("")
	for _, td := range m.tabs {
		td.table.SetRows(nil)
		td.loaded = false
		td.loading = false
		td.err = ""
	}
	return m.setFocus(0)
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.idle.Stop()
	m.unmountAll()
	return m, tea.Quit
}

func (m Model) unmountAll() {
	m.dealers.Unmount()
	m.agents.Unmount()
	m.stocks.Unmount()
	m.bundles.Unmount()
}

// loadAll mounts every tab's query concurrently
func (m Model) loadAll() tea.Cmd {
	for _, td := range m.tabs {
		td.loading = true
	}
	ctx, store := m.ctx, m.deps.Store
	dealers, agents, stocks, bundles := m.dealers, m.agents, m.stocks, m.bundles

	return func() tea.Msg {
		if store != nil {
			store.Touch()
		}

		var out loadedMsg
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(int(tabCount))
		g.Go(func() error {
			err := dealers.Mount(gctx)
			out.tabs[TabDealers] = result(ux.Dealers(dealers.State().Data), err)
			return nil
		})
		g.Go(func() error {
			err := agents.Mount(gctx)
			out.tabs[TabAgents] = result(ux.Agents(agents.State().Data), err)
			return nil
		})
		g.Go(func() error {
			err := stocks.Mount(gctx)
			out.tabs[TabStocks] = result(ux.Stocks(stocks.State().Data), err)
			return nil
		})
		g.Go(func() error {
			err := bundles.Mount(gctx)
			out.tabs[TabBundles] = result(ux.Activations(bundles.State().Data), err)
			return nil
		})
		_ = g.Wait()
		return out
	}
}

// refresh invalidates the tab's key; mounted queries refetch
func (m Model) refresh(tab Tab) tea.Cmd {
	m.tabs[tab].loading = true
	ctx, cache := m.ctx, m.deps.Cache
	q := m.tabQuery(tab)

	return func() tea.Msg {
		err := cache.Invalidate(ctx, tabKeys[tab])
		var out loadedMsg
		for i := range out.tabs {
			out.tabs[i].skipped = true
		}
		out.tabs[tab] = q(err)
		return out
	}
}

func (m Model) tabQuery(tab Tab) func(error) loadResult {
	switch tab {
	case TabAgents:
		return func(err error) loadResult { return result(ux.Agents(m.agents.State().Data), err) }
	case TabStocks:
		return func(err error) loadResult { return result(ux.Stocks(m.stocks.State().Data), err) }
	case TabBundles:
		return func(err error) loadResult { return result(ux.Activations(m.bundles.State().Data), err) }
	default:
		return func(err error) loadResult { return result(ux.Dealers(m.dealers.State().Data), err) }
	}
}

func result(t ux.Tabular, err error) loadResult {
	if errors.Is(err, query.ErrDiscarded) {
		return loadResult{skipped: true}
	}
	if err != nil {
		return loadResult{err: err}
	}
	return loadResult{headers: t.Headers(), rows: t.Rows()}
}

func columns(headers []string, rows [][]string) []table.Column {
	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		w := len(h)
		for _, r := range rows {
			if i < len(r) && len(r[i]) > w {
				w = len(r[i])
			}
		}
		cols[i] = table.Column{Title: h, Width: min(w+2, 32)}
	}
	return cols
}

func toRows(rows [][]string) []table.Row {
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		out[i] = table.Row(r)
	}
	return out
}

func signInMessage(err error) string {
	var fe forms.FieldErrors
	if errors.As(err, &fe) {
		return fe.Error()
	}
	if apiErr, ok := platform.AsAPIError(err); ok && !apiErr.Message.Empty() {
		return apiErr.Message.Text
	}
	msg := err.Error()
	if i := strings.Index(msg, "\n\n"); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

// expire tears the session down off the update loop
func (m Model) expire(reason session.Reason) tea.Cmd {
	store, logger := m.deps.Store, m.deps.Logger
	return func() tea.Msg {
		if store != nil {
			if err := session.Expire(store, nil, reason); err != nil {
				logger.WithError(err).Warn("sign-out failed", "reason", string(reason))
			}
		}
		return SignInRequiredMsg{Reason: reason}
	}
}

// Run starts the console and blocks until it exits
func Run(ctx context.Context, deps Deps) error {
	m := NewModel(ctx, deps)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if deps.Bridge != nil {
		// Send blocks until the program reads its queue
		go deps.Bridge.Attach(p)
		defer deps.Bridge.Detach()
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
