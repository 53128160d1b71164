package sms

import (
	"context"

	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/domain/notification"
)

type Outgoing struct {
	To   string `json:"to" validate:"required"`
	Body string `json:"body" validate:"required,max=1600"`
}

// SendBulk delivers messages one at a time, pausing BulkDelay between
// them. A cancelled context fails the remaining messages without sending.
func (c *Client) SendBulk(ctx context.Context, msgs []Outgoing) []notification.Delivery {
	out := make([]notification.Delivery, len(msgs))
	for i, m := range msgs {
		if i > 0 {
			if err := c.sleep(ctx, c.cfg.BulkDelay); err != nil {
				c.log.Warn("sms bulk interrupted", zap.Int("sent", i), zap.Int("total", len(msgs)), zap.Error(err))
				for j := i; j < len(msgs); j++ {
					out[j] = notification.Delivery{Error: err.Error()}
				}
				return out
			}
		}
		out[i] = c.Deliver(ctx, m.To, "", m.Body)
	}
	return out
}
