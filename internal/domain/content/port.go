package content

import (
	"context"
	"time"
)

type Repo interface {
	List(ctx context.Context, kind Kind, f Filter) ([]*Item, error)
	Get(ctx context.Context, kind Kind, id int64) (*Item, error)
	Create(ctx context.Context, it *Item) error
	Update(ctx context.Context, kind Kind, id int64, p Patch) (*Item, error)
	Delete(ctx context.Context, kind Kind, id int64) error
	Publish(ctx context.Context, kind Kind, id int64, at time.Time) (*Item, error)
	Count(ctx context.Context, kind Kind, f Filter) (int64, error)

	DueEvents(ctx context.Context, from, to time.Time, limit int) ([]*Item, error)
	MarkReminded(ctx context.Context, id int64, at time.Time) error
}

// Identities resolves the signed-in author, if any.
type Identities interface {
	Current(ctx context.Context) (int64, bool)
}
