package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NordCoder/EduPortal/internal/domain/notification"
)

var _ notification.Repo = (*NotificationRepoImpl)(nil)

type NotificationRepoImpl struct{ db *DB }

func NewNotificationRepo(db *DB) *NotificationRepoImpl { return &NotificationRepoImpl{db: db} }

const (
	qNotifInsert = `
INSERT INTO notifications (recipient_id, channel, title, message, status, data)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at;`

	qNotifUpdateStatus = `
UPDATE notifications
SET status              = $2,
    provider_message_id = NULLIF($3, ''),
    error               = NULLIF($4, ''),
    sent_at             = CASE WHEN $2 IN ('sent', 'delivered') THEN now() ELSE sent_at END
WHERE id = $1;`

	qNotifByRecipient = `
SELECT id, recipient_id, channel, title, message, status, is_read,
       COALESCE(provider_message_id, ''), COALESCE(error, ''), data, created_at, sent_at, read_at
FROM notifications
WHERE recipient_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;`

	qNotifMarkRead = `
UPDATE notifications
SET is_read = TRUE, read_at = now()
WHERE id = $1 AND recipient_id = $2;`

	qNotifMarkAllRead = `
UPDATE notifications
SET is_read = TRUE, read_at = now()
WHERE recipient_id = $1 AND is_read = FALSE;`

	qNotifCountUnread = `
SELECT count(*)
FROM notifications
WHERE recipient_id = $1 AND is_read = FALSE;`
)

func (r *NotificationRepoImpl) Create(ctx context.Context, n *notification.Notification) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var data []byte
	if len(n.Data) > 0 {
		data = n.Data
	}
	if n.Status == "" {
		n.Status = notification.StatusPending
	}

	if err := r.db.Pool.QueryRow(ctx, qNotifInsert,
		n.RecipientID,
		string(n.Channel),
		n.Title,
		n.Message,
		string(n.Status),
		data,
	).Scan(&n.ID, &n.CreatedAt); err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return fmt.Errorf("insert notification: %w", mapped)
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepoImpl) UpdateStatus(ctx context.Context, id int64, st notification.Status, providerID, errMsg string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qNotifUpdateStatus, id, string(st), providerID, errMsg)
	if err != nil {
		return fmt.Errorf("update notification status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepoImpl) ListByRecipient(ctx context.Context, recipientID int64, limit, offset int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qNotifByRecipient, recipientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := make([]*notification.Notification, 0, limit)
	for rows.Next() {
		var (
			n              notification.Notification
			channel, state string
			data           []byte
		)
		if err := rows.Scan(&n.ID, &n.RecipientID, &channel, &n.Title, &n.Message, &state, &n.Read,
			&n.ProviderMessageID, &n.Error, &data, &n.CreatedAt, &n.SentAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Channel = notification.Channel(channel)
		n.Status = notification.Status(state)
		if len(data) > 0 {
			n.Data = json.RawMessage(data)
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *NotificationRepoImpl) MarkRead(ctx context.Context, recipientID, id int64) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qNotifMarkRead, id, recipientID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *NotificationRepoImpl) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qNotifMarkAllRead, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepoImpl) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n int
	if err := r.db.Pool.QueryRow(ctx, qNotifCountUnread, recipientID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}
