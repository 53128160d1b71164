package notification

import (
	"context"
	"encoding/json"
	"time"
)

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusDelivered Status = "delivered"
)

type Notification struct {
	ID                int64           `json:"id"`
	RecipientID       int64           `json:"recipient_id"`
	Channel           Channel         `json:"channel"`
	Title             string          `json:"title"`
	Message           string          `json:"message"`
	Status            Status          `json:"status"`
	Read              bool            `json:"is_read"`
	ProviderMessageID string          `json:"provider_message_id,omitempty"`
	Error             string          `json:"error,omitempty"`
	Data              json.RawMessage `json:"data,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	SentAt            *time.Time      `json:"sent_at,omitempty"`
	ReadAt            *time.Time      `json:"read_at,omitempty"`
}

// Message is one outbound notification for one recipient.
type Message struct {
	RecipientID int64          `json:"recipient_id"`
	Channel     Channel        `json:"channel"`
	Address     string         `json:"address"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Data        map[string]any `json:"data,omitempty"`
}

type BulkResult struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// Delivery is the normalized outcome of one transport call.
type Delivery struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Simulated bool   `json:"simulated,omitempty"`
}

// Transport delivers a rendered message to one address. Implementations
// never return errors; failures are reported through Delivery.
type Transport interface {
	Deliver(ctx context.Context, to, subject, body string) Delivery
}

type Clock interface {
	Now() time.Time
}
