package realtime

import (
	"context"
	"errors"

	"go.uber.org/zap"

	domainrt "github.com/NordCoder/EduPortal/internal/domain/realtime"
	"github.com/NordCoder/EduPortal/internal/obs"
	"github.com/NordCoder/EduPortal/internal/repository/kafka"
)

type MessageConsumer interface {
	Consume(ctx context.Context, h kafka.Handler) error
}

// Feed pushes change events read from the broker into the hub.
type Feed struct {
	consumer MessageConsumer
	hub      *Hub
	log      *zap.Logger
}

func NewFeed(consumer MessageConsumer, hub *Hub, log *zap.Logger) *Feed {
	return &Feed{consumer: consumer, hub: hub, log: obs.Component(log, "realtime.feed")}
}

// Handler decodes one change-event message and publishes it to the hub.
func (f *Feed) Handler() kafka.Handler {
	return kafka.ChangeEventHandler(func(ctx context.Context, ev domainrt.ChangeEvent) error {
		obs.WithTrace(ctx, f.log).Debug("change event",
			zap.String("table", ev.Table), zap.String("op", string(ev.Op)))
		f.hub.Publish(ev)
		return nil
	})
}

// Run consumes until ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	err := f.consumer.Consume(ctx, f.Handler())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
