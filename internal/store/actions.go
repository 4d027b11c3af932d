package store

import (
	"context"
	"fmt"

	"github.com/nhle/compliance-notifier/internal/model"
)

// MarkNotificationRead moves a notification to read and records the event.
func MarkNotificationRead(ctx context.Context, s Store, id string) (*model.Notification, error) {
	return advance(ctx, s, id, model.NotificationRead, nil)
}

// MarkNotificationActioned moves a notification to actioned. The action
// type is kept in the log entry's metadata.
func MarkNotificationActioned(ctx context.Context, s Store, id, actionType string) (*model.Notification, error) {
	var meta model.Metadata
	if actionType != "" {
		meta = model.Metadata{"actionType": actionType}
	}
	return advance(ctx, s, id, model.NotificationActioned, meta)
}

// DismissNotification closes a notification without acting on it.
func DismissNotification(ctx context.Context, s Store, id string) (*model.Notification, error) {
	return advance(ctx, s, id, model.NotificationDismissed, nil)
}

// advance applies a user-driven status change and appends the matching log
// entry in one transaction. Repeating the current status is a no-op.
func advance(
	ctx context.Context,
	s Store,
	id string,
	status model.NotificationStatus,
	meta model.Metadata,
) (*model.Notification, error) {
	var result *model.Notification
	err := s.WithTx(ctx, func(tx Store) error {
		current, err := tx.GetNotification(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == status {
			result = current
			return nil
		}

		updated, err := tx.UpdateNotification(ctx, id, model.NotificationPatch{Status: &status})
		if err != nil {
			return err
		}

		_, err = tx.CreateNotificationLog(ctx, model.NotificationLog{
			NotificationID: id,
			UserID:         updated.UserID,
			Status:         status,
			Channel:        model.ChannelDashboard,
			Metadata:       meta,
		})
		if err != nil {
			return fmt.Errorf("logging %s for notification %s: %w", status, id, err)
		}

		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
