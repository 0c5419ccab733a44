package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"quotamon/cmd/quotamon/ui"
	"quotamon/internal/api"
	"quotamon/internal/auth"
	"quotamon/internal/config"
	"quotamon/internal/history"
	"quotamon/internal/logging"
	"quotamon/internal/quota"
	"quotamon/internal/watch"
)

// Messages flowing through the dashboard update loop.
type (
	quotaMsg       struct{ snap *quota.Snapshot }
	apiUsageMsg    struct{ usage *quota.APIUsage }
	refreshErrMsg  struct{ err error }
	secondTickMsg  time.Time
	refreshTickMsg time.Time
	fileChangedMsg struct{ path string }
)

type keyMap struct {
	Refresh key.Binding
	Mode    key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Mode:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "api mode")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Mode, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Refresh, k.Mode}, {k.Help, k.Quit}}
}

type dashboardModel struct {
	cfg     config.Config
	styles  ui.Styles
	donut   ui.Donut
	spin    spinner.Model
	keys    keyMap
	help    help.Model
	client  *api.Client
	store   *history.Store
	watcher *watch.Watcher

	snapshot  *quota.Snapshot
	apiUsage  *quota.APIUsage
	sparkline string
	planType  string

	apiMode     bool
	authed      bool
	loading     bool
	lastRefresh time.Time
	now         time.Time
	errText     string

	width, height int
}

func newDashboardModel(cfg config.Config, client *api.Client, store *history.Store, watcher *watch.Watcher, apiMode bool) dashboardModel {
	styles := ui.DefaultStyles()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return dashboardModel{
		cfg:      cfg,
		styles:   styles,
		donut:    ui.NewDonut(),
		spin:     sp,
		keys:     defaultKeyMap(),
		help:     help.New(),
		client:   client,
		store:    store,
		watcher:  watcher,
		planType: cfg.PlanType,
		apiMode:  apiMode,
		authed:   auth.IsAuthenticated() || cfg.AdminAPIKey != "",
		loading:  true,
		now:      time.Now(),
	}
}

func (m dashboardModel) refreshInterval() time.Duration {
	return time.Duration(m.cfg.RefreshInterval) * time.Second
}

func (m dashboardModel) Init() tea.Cmd {
	if !m.authed {
		return nil
	}
	cmds := []tea.Cmd{
		m.spin.Tick,
		m.fetchQuotaCmd(),
		secondTick(),
		refreshTick(m.refreshInterval()),
	}
	if m.apiMode && m.cfg.AdminAPIKey != "" {
		cmds = append(cmds, m.fetchAPIUsageCmd())
	}
	if m.watcher != nil {
		cmds = append(cmds, waitForFileChange(m.watcher))
	}
	return tea.Batch(cmds...)
}

func (m dashboardModel) fetchQuotaCmd() tea.Cmd {
	client := m.client
	haveAdminKey := m.cfg.AdminAPIKey != ""
	return func() tea.Msg {
		token := auth.OAuthToken()
		if token == "" {
			// An Admin-key-only install has no quota to fetch; that is not
			// an error, the stats panel just runs in API mode.
			if haveAdminKey {
				return quotaMsg{}
			}
			return refreshErrMsg{err: errors.New("no OAuth token. Run 'quotamon setup'")}
		}
		snap, err := client.FetchQuota(context.Background(), token)
		if err != nil {
			return refreshErrMsg{err: err}
		}
		return quotaMsg{snap: snap}
	}
}

func (m dashboardModel) fetchAPIUsageCmd() tea.Cmd {
	client := m.client
	adminKey := m.cfg.AdminAPIKey
	return func() tea.Msg {
		usage, err := client.FetchAPIUsage(context.Background(), adminKey)
		if err != nil {
			return refreshErrMsg{err: err}
		}
		return apiUsageMsg{usage: usage}
	}
}

func secondTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return secondTickMsg(t)
	})
}

func refreshTick(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

func waitForFileChange(w *watch.Watcher) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-w.Events()
		if !ok {
			return nil
		}
		return fileChangedMsg{path: ev.Path}
	}
}

func (m dashboardModel) refresh() (dashboardModel, tea.Cmd) {
	m.loading = true
	m.errText = ""
	cmds := []tea.Cmd{m.fetchQuotaCmd()}
	if m.apiMode && m.cfg.AdminAPIKey != "" {
		cmds = append(cmds, m.fetchAPIUsageCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			return m.refresh()
		case key.Matches(msg, m.keys.Mode):
			m.apiMode = !m.apiMode
			if m.apiMode && m.cfg.AdminAPIKey == "" {
				m.errText = "no Admin API key. Run 'quotamon setup --api'"
				m.apiMode = false
				return m, nil
			}
			return m.refresh()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case secondTickMsg:
		m.now = time.Time(msg)
		return m, secondTick()

	case refreshTickMsg:
		var cmd tea.Cmd
		m, cmd = m.refresh()
		return m, tea.Batch(cmd, refreshTick(m.refreshInterval()))

	case fileChangedMsg:
		logging.UI("watched file changed: %s, refreshing", msg.path)
		if filepath.Base(msg.path) == filepath.Base(config.Path()) {
			if cfg, err := config.Load(); err == nil {
				m.cfg = cfg
				// A plan edited into the file takes effect now; the next
				// snapshot still overrides when the API reports a plan.
				if cfg.PlanType != "" {
					m.planType = cfg.PlanType
				}
			}
		}
		var cmd tea.Cmd
		m, cmd = m.refresh()
		if m.watcher == nil {
			return m, cmd
		}
		return m, tea.Batch(cmd, waitForFileChange(m.watcher))

	case quotaMsg:
		m.loading = false
		m.errText = ""
		m.lastRefresh = time.Now()
		m.now = m.lastRefresh
		if msg.snap != nil {
			m.snapshot = msg.snap
			if msg.snap.PlanType != "" {
				m.planType = msg.snap.PlanType
			}
			m.recordSnapshot(msg.snap)
			if logging.Enabled() {
				logging.UI("snapshot: 5h=%.0f%% 7d=%.0f%% %s",
					msg.snap.FiveHourUsagePct, msg.snap.SevenDayUsagePct,
					describeModelQuotas(msg.snap.ModelQuotas))
			}
		}
		return m, nil

	case apiUsageMsg:
		m.apiUsage = msg.usage
		m.loading = false
		m.lastRefresh = time.Now()
		m.now = m.lastRefresh
		return m, nil

	case refreshErrMsg:
		m.loading = false
		m.errText = describeError(msg.err)
		return m, nil
	}

	return m, nil
}

// recordSnapshot appends to the history store and refreshes the trend line.
// History is best effort; the dashboard keeps running without it.
func (m *dashboardModel) recordSnapshot(snap *quota.Snapshot) {
	if m.store == nil {
		return
	}
	if err := m.store.Record(snap); err != nil {
		logging.Get(logging.CategoryHistory).Warn("record failed: %v", err)
		return
	}
	if line, err := m.store.Sparkline(30); err == nil {
		m.sparkline = line
	}
}

// describeModelQuotas flattens per-model usage into one debug log token.
func describeModelQuotas(quotas []quota.ModelQuota) string {
	if len(quotas) == 0 {
		return "models=none"
	}
	parts := make([]string, len(quotas))
	for i, q := range quotas {
		parts[i] = fmt.Sprintf("%s=%.0f%%", q.ModelName, q.UsagePct)
	}
	return "models[" + strings.Join(parts, " ") + "]"
}

func describeError(err error) string {
	var authErr *api.AuthError
	var fetchErr *api.FetchError
	switch {
	case errors.As(err, &authErr):
		return authErr.Message
	case errors.As(err, &fetchErr):
		return fmt.Sprintf("Fetch error: %v", fetchErr)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

func (m dashboardModel) View() string {
	if !m.authed {
		return m.setupView()
	}

	header := ui.RenderHeader(m.styles, ui.HeaderData{
		PlanType:    m.planType,
		Loading:     m.loading,
		Err:         m.errText,
		LastRefresh: m.lastRefresh,
		Now:         m.now,
	})

	var gauge string
	switch {
	case m.snapshot != nil:
		gauge = m.donut.Render(m.styles, m.snapshot.FiveHourUsagePct, "5-Hour Quota",
			m.snapshot.FiveHourResetAt, m.now)
	case m.loading:
		gauge = m.spin.View() + " " + m.styles.Muted.Render("fetching quota...")
	default:
		// Admin-key-only mode: no OAuth quota exists, show the idle gauge.
		gauge = m.donut.Render(m.styles, 0, "Usage", nil, m.now)
	}

	stats := ui.RenderStats(m.styles, ui.StatsData{
		Quota:       m.snapshot,
		APIUsage:    m.apiUsage,
		ShowAPIMode: m.apiMode,
		Sparkline:   m.sparkline,
		Now:         m.now,
	})

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Padding(1, 2).Render(gauge),
		lipgloss.NewStyle().Padding(1, 2).Render(stats),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.styles.RenderDivider(m.width),
		body,
		m.help.View(m.keys),
	)
}

func (m dashboardModel) setupView() string {
	s := m.styles
	return "\n" +
		s.Notice.Render("Not authenticated") + "\n\n" +
		s.Body.Render("Run ") + s.Bold.Render("quotamon setup") +
		s.Body.Render(" to configure your OAuth token") + "\n" +
		s.Body.Render("and start monitoring your Claude quota.") + "\n\n" +
		s.Muted.Render("quotamon setup        - OAuth + optional Admin API") + "\n" +
		s.Muted.Render("quotamon setup --api  - Admin API key only") + "\n\n" +
		s.Help.Render("press q to quit")
}

// runDashboard wires up the client, history store, and file watcher, then
// hands the terminal to Bubble Tea.
func runDashboard(apiMode bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logging.Initialize(config.Dir(), cfg.DebugMode); err != nil {
		return err
	}
	defer logging.CloseAll()
	logging.Get(logging.CategoryBoot).Info("starting dashboard, plan=%s interval=%ds",
		cfg.PlanType, cfg.RefreshInterval)

	client := api.NewClient()

	var store *history.Store
	if s, err := history.Open(historyPath()); err == nil {
		store = s
		defer s.Close()
	} else {
		logging.Get(logging.CategoryHistory).Warn("history disabled: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var watcher *watch.Watcher
	if w, err := watch.New(auth.CredentialsFilePath(), config.Path()); err == nil {
		if err := w.Start(ctx); err == nil {
			watcher = w
			defer w.Stop()
		}
	}

	model := newDashboardModel(cfg, client, store, watcher, apiMode)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
