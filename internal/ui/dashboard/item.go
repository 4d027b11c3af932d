package dashboard

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/compliance-notifier/internal/model"
	"github.com/nhle/compliance-notifier/internal/theme"
)

// NotificationItem wraps a model.Notification for a bubbles/list.
type NotificationItem struct {
	Notification model.Notification
}

func (i NotificationItem) FilterValue() string { return i.Notification.Title }

// ItemDelegate renders one notification per line.
type ItemDelegate struct {
	// now is the reference for relative ages.
	now func() time.Time
}

func (d ItemDelegate) Height() int { return 1 }

func (d ItemDelegate) Spacing() int { return 0 }

func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render draws a single notification line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(NotificationItem)
	if !ok {
		return
	}
	n := it.Notification

	typeBadge := theme.TypeLabelStyle(n.Type).Render(typeLabel(n.Type))
	statusBadge := theme.StatusStyle(n.Status).Render(string(n.Status))
	priBadge := theme.PriorityStyle(n.Priority).Render(priorityLabel(n.Priority))

	escalation := ""
	if n.EscalationLevel > 0 {
		escalation = lipgloss.NewStyle().
			Foreground(theme.ColorRed).
			Render(fmt.Sprintf(" ↑L%d", n.EscalationLevel))
	}

	age := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(d.now(), n.CreatedAt))

	line := fmt.Sprintf("%s %s %s %s%s  %s", typeBadge, statusBadge, priBadge, n.Title, escalation, age)

	if n.Status.Terminal() {
		line = theme.DimmedStyle.Render(line)
	}
	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

func typeLabel(t model.TaskType) string {
	s := strings.ToUpper(string(t))
	return s[:min(3, len(s))]
}

// priorityLabel returns a short label for the given priority.
func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityCritical:
		return "P1"
	case model.PriorityHigh:
		return "P2"
	case model.PriorityMedium:
		return "P3"
	case model.PriorityLow:
		return "P4"
	default:
		return "P?"
	}
}

// relativeTime returns a human-friendly age of t at now.
func relativeTime(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}
