package notification

import "context"

type Repo interface {
	Create(ctx context.Context, n *Notification) error
	UpdateStatus(ctx context.Context, id int64, st Status, providerID, errMsg string) error
	ListByRecipient(ctx context.Context, recipientID int64, limit, offset int) ([]*Notification, error)
	MarkRead(ctx context.Context, recipientID, id int64) (bool, error)
	MarkAllRead(ctx context.Context, recipientID int64) (int64, error)
	CountUnread(ctx context.Context, recipientID int64) (int, error)
}
