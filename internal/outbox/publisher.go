package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/NordCoder/EduPortal/internal/domain/outbox"
	"github.com/NordCoder/EduPortal/internal/domain/realtime"
)

// Publisher stores change events in the outbox. When called inside a
// transaction the event commits or rolls back with the row it describes.
type Publisher struct {
	repo outbox.Repository
}

func NewPublisher(repo outbox.Repository) *Publisher { return &Publisher{repo: repo} }

var _ realtime.Publisher = (*Publisher)(nil)

func (p *Publisher) PublishChange(ctx context.Context, ev realtime.ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	return p.repo.Enqueue(ctx, uuid.NewString(), outbox.KindContentChanged, data)
}
