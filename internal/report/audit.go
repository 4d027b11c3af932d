// Package report exports the notification audit trail as an XLSX workbook.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nhle/compliance-notifier/internal/model"
	"github.com/nhle/compliance-notifier/internal/store"
)

const (
	NotificationsSheet = "Notifications"
	LogSheet           = "Log"

	timeLayout = "2006-01-02 15:04:05"
)

var (
	notificationHeaders = []string{
		"Notification ID", "User ID", "Task ID", "Type", "Title", "Message",
		"Status", "Priority", "Channels", "Escalation Level", "Escalated To",
		"Created", "Sent", "Read", "Actioned",
	}
	logHeaders = []string{
		"Log ID", "Notification ID", "User ID", "Status", "Channel", "Metadata", "Created",
	}
)

// AuditSource supplies the rows of the export.
type AuditSource interface {
	GetNotifications(ctx context.Context, filter store.NotificationFilter) ([]model.Notification, error)
	GetNotificationLogs(ctx context.Context, notificationID string) ([]model.NotificationLog, error)
}

// Summary counts what an export wrote.
type Summary struct {
	Notifications int
	LogEntries    int
}

// BuildAudit returns a workbook with one sheet of notifications matching
// filter and one sheet of their log entries, in notification order.
func BuildAudit(ctx context.Context, src AuditSource, filter store.NotificationFilter) (*excelize.File, Summary, error) {
	var sum Summary

	notifications, err := src.GetNotifications(ctx, filter)
	if err != nil {
		return nil, sum, fmt.Errorf("loading notifications: %w", err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), NotificationsSheet); err != nil {
		f.Close()
		return nil, sum, fmt.Errorf("naming sheet: %w", err)
	}
	if _, err := f.NewSheet(LogSheet); err != nil {
		f.Close()
		return nil, sum, fmt.Errorf("creating log sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, sum, fmt.Errorf("creating header style: %w", err)
	}

	for sheet, headers := range map[string][]string{
		NotificationsSheet: notificationHeaders,
		LogSheet:           logHeaders,
	} {
		if err := writeRow(f, sheet, 1, toAny(headers)); err != nil {
			f.Close()
			return nil, sum, err
		}
		if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
			f.Close()
			return nil, sum, fmt.Errorf("styling %s header: %w", sheet, err)
		}
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
		}); err != nil {
			f.Close()
			return nil, sum, fmt.Errorf("freezing %s header: %w", sheet, err)
		}
	}

	logRow := 2
	for i, n := range notifications {
		if err := writeRow(f, NotificationsSheet, i+2, notificationRow(n)); err != nil {
			f.Close()
			return nil, sum, err
		}
		sum.Notifications++

		logs, err := src.GetNotificationLogs(ctx, n.ID)
		if err != nil {
			f.Close()
			return nil, sum, fmt.Errorf("loading log for %s: %w", n.ID, err)
		}
		for _, l := range logs {
			if err := writeRow(f, LogSheet, logRow, logEntryRow(l)); err != nil {
				f.Close()
				return nil, sum, err
			}
			logRow++
			sum.LogEntries++
		}
	}

	_ = f.SetColWidth(NotificationsSheet, "A", "O", 18)
	_ = f.SetColWidth(NotificationsSheet, "E", "F", 40)
	_ = f.SetColWidth(LogSheet, "A", "G", 20)

	return f, sum, nil
}

// ExportAudit builds the workbook and saves it to path.
func ExportAudit(ctx context.Context, src AuditSource, filter store.NotificationFilter, path string) (Summary, error) {
	f, sum, err := BuildAudit(ctx, src, filter)
	if err != nil {
		return sum, err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return sum, fmt.Errorf("saving %s: %w", path, err)
	}
	return sum, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

func notificationRow(n model.Notification) []any {
	return []any{
		n.ID,
		n.UserID,
		deref(n.TaskID),
		string(n.Type),
		n.Title,
		n.Message,
		string(n.Status),
		string(n.Priority),
		strings.Join(n.Channels, ", "),
		n.EscalationLevel,
		deref(n.EscalatedTo),
		formatTime(&n.CreatedAt),
		formatTime(n.SentAt),
		formatTime(n.ReadAt),
		formatTime(n.ActionedAt),
	}
}

func logEntryRow(l model.NotificationLog) []any {
	meta := ""
	if len(l.Metadata) > 0 {
		if b, err := json.Marshal(l.Metadata); err == nil {
			meta = string(b)
		}
	}
	return []any{
		l.ID,
		l.NotificationID,
		l.UserID,
		string(l.Status),
		l.Channel,
		meta,
		formatTime(&l.CreatedAt),
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
