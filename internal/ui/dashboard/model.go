// Package dashboard is the terminal view over task statistics and the
// latest notifications.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/compliance-notifier/internal/engine"
	"github.com/nhle/compliance-notifier/internal/keys"
	"github.com/nhle/compliance-notifier/internal/model"
	"github.com/nhle/compliance-notifier/internal/store"
	"github.com/nhle/compliance-notifier/internal/theme"
	"github.com/nhle/compliance-notifier/internal/ui"
)

// DefaultPollInterval is how often the dashboard reloads on its own.
const DefaultPollInterval = 15 * time.Second

// notificationLimit caps how many notifications are listed.
const notificationLimit = 200

// filters is the status filter cycle; nil shows everything.
var filters = []*model.NotificationStatus{
	nil,
	statusPtr(model.NotificationPending),
	statusPtr(model.NotificationSent),
	statusPtr(model.NotificationRead),
	statusPtr(model.NotificationActioned),
	statusPtr(model.NotificationDismissed),
}

func statusPtr(s model.NotificationStatus) *model.NotificationStatus { return &s }

// TickFunc runs the notification engine once.
type TickFunc func(ctx context.Context) (engine.Report, error)

// Options configures the dashboard.
type Options struct {
	// UserID scopes the view to one user; nil shows everyone.
	UserID       *string
	PollInterval time.Duration
	Tick         TickFunc
	Now          func() time.Time

	// DueSoonDays is the window of the due-soon card; zero means
	// model.DueSoonDays.
	DueSoonDays int
}

// DataLoadedMsg carries a fresh snapshot from the store.
type DataLoadedMsg struct {
	Stats         model.TaskStats
	Notifications []model.Notification
	Err           error
	At            time.Time
}

// ActionDoneMsg reports the outcome of a notification action.
type ActionDoneMsg struct {
	Verb string
	Err  error
}

// TickDoneMsg reports an engine run started from the dashboard.
type TickDoneMsg struct {
	Report engine.Report
	Err    error
}

type pollMsg struct{}

// Model is the root Bubble Tea model of the dashboard.
type Model struct {
	store   store.Store
	opts    Options
	keys    *keys.KeyMap
	layout  ui.Layout
	list    list.Model
	help    help.Model
	stats   model.TaskStats
	filter  int
	loaded  time.Time
	message string
	err     error
}

// New creates a dashboard reading from s.
func New(s store.Store, opts Options) Model {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	l := list.New([]list.Item{}, ItemDelegate{now: opts.Now}, 80, 20)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		store:  s,
		opts:   opts,
		keys:   keys.DefaultKeyMap(),
		layout: ui.NewLayout(80, 24),
		list:   l,
		help:   help.New(),
	}
}

// Init loads the first snapshot and starts polling.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.poll())
}

// Update handles messages for the dashboard.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.help.Width = msg.Width
		m.list.SetSize(msg.Width, m.listHeight())
		return m, nil

	case DataLoadedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		m.stats = msg.Stats
		m.loaded = msg.At
		items := make([]list.Item, len(msg.Notifications))
		for i, n := range msg.Notifications {
			items[i] = NotificationItem{Notification: n}
		}
		return m, m.list.SetItems(items)

	case ActionDoneMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		m.message = msg.Verb
		return m, m.load()

	case TickDoneMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		m.message = fmt.Sprintf("engine: %d created, %d escalated, %d failed",
			msg.Report.Created, msg.Report.Escalated, msg.Report.Failed)
		return m, m.load()

	case pollMsg:
		return m, tea.Batch(m.load(), m.poll())

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.list.SetSize(m.layout.Width, m.listHeight())
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.load()

	case key.Matches(msg, m.keys.CycleFilter):
		m.filter = (m.filter + 1) % len(filters)
		return m, m.load()

	case key.Matches(msg, m.keys.RunTick):
		if m.opts.Tick == nil {
			m.message = "engine not available"
			return m, nil
		}
		tick := m.opts.Tick
		return m, func() tea.Msg {
			report, err := tick(context.Background())
			return TickDoneMsg{Report: report, Err: err}
		}

	case key.Matches(msg, m.keys.Read):
		return m, m.act("marked read", func(ctx context.Context, id string) error {
			_, err := store.MarkNotificationRead(ctx, m.store, id)
			return err
		})

	case key.Matches(msg, m.keys.Action):
		return m, m.act("marked actioned", func(ctx context.Context, id string) error {
			_, err := store.MarkNotificationActioned(ctx, m.store, id, "dashboard")
			return err
		})

	case key.Matches(msg, m.keys.Dismiss):
		return m, m.act("dismissed", func(ctx context.Context, id string) error {
			_, err := store.DismissNotification(ctx, m.store, id)
			return err
		})
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// act runs fn against the selected notification.
func (m Model) act(verb string, fn func(ctx context.Context, id string) error) tea.Cmd {
	item, ok := m.list.SelectedItem().(NotificationItem)
	if !ok {
		return nil
	}
	id := item.Notification.ID
	return func() tea.Msg {
		return ActionDoneMsg{Verb: verb, Err: fn(context.Background(), id)}
	}
}

// load returns a command reading stats and notifications with the current
// filter.
func (m Model) load() tea.Cmd {
	s := m.store
	userID := m.opts.UserID
	now := m.opts.Now
	days := m.opts.DueSoonDays
	filter := store.NotificationFilter{
		UserID: userID,
		Status: filters[m.filter],
		Limit:  notificationLimit,
	}
	return func() tea.Msg {
		ctx := context.Background()
		at := now()
		stats, err := s.GetTaskStats(ctx, at, days, userID)
		if err != nil {
			return DataLoadedMsg{Err: err}
		}
		notifications, err := s.GetNotifications(ctx, filter)
		if err != nil {
			return DataLoadedMsg{Err: err}
		}
		return DataLoadedMsg{Stats: stats, Notifications: notifications, At: at}
	}
}

func (m Model) poll() tea.Cmd {
	return tea.Tick(m.opts.PollInterval, func(time.Time) tea.Msg { return pollMsg{} })
}

func (m Model) listHeight() int {
	return max(m.layout.ContentHeight()-lipgloss.Height(m.renderStats())-lipgloss.Height(m.help.View(m.keys))+1, 3)
}

// View renders the dashboard.
func (m Model) View() string {
	status := "loading…"
	if !m.loaded.IsZero() {
		status = "updated " + m.loaded.Format("15:04:05")
	}
	header := m.layout.RenderHeader("Compliance Notifications", status)

	body := lipgloss.JoinVertical(lipgloss.Left, m.renderStats(), m.renderList())
	if m.help.ShowAll {
		body = lipgloss.JoinVertical(lipgloss.Left, body, m.help.View(m.keys))
	}

	message := m.message
	if m.err != nil {
		message = theme.ErrorStyle.Render(m.err.Error())
	}
	bar := m.layout.RenderStatusBar(m.help.ShortHelpView(m.keys.ShortHelp()), message)

	return m.layout.RenderWithFrame(header, body, bar)
}

func (m Model) renderStats() string {
	card := func(label string, value int, color lipgloss.TerminalColor) string {
		v := lipgloss.NewStyle().Bold(true).Foreground(color).Render(fmt.Sprint(value))
		return theme.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Center, v, label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total", m.stats.Total, theme.ColorWhite),
		card("Due soon", m.stats.DueSoon, theme.ColorYellow),
		card("Overdue", m.stats.Overdue, theme.ColorRed),
		card("Completed", m.stats.Completed, theme.ColorGreen),
	)
}

func (m Model) renderList() string {
	if len(m.list.Items()) == 0 {
		text := "No notifications yet."
		if f := filters[m.filter]; f != nil {
			text = fmt.Sprintf("No %s notifications.", *f)
		}
		return lipgloss.NewStyle().
			Width(m.layout.Width).
			Padding(1, 2).
			Foreground(theme.ColorGray).
			Render(text)
	}
	if f := filters[m.filter]; f != nil {
		m.list.Title = fmt.Sprintf("Notifications (%s)", *f)
	}
	return m.list.View()
}
