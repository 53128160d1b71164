package notification

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/domain/content"
	domainnotif "github.com/NordCoder/EduPortal/internal/domain/notification"
	"github.com/NordCoder/EduPortal/internal/domain/realtime"
	"github.com/NordCoder/EduPortal/internal/obs"
)

// Table is the change-event table notification rows are published under.
const Table = "notifications"

type Config struct {
	PreferredChannel domainnotif.Channel `mapstructure:"preferred_channel"`
}

var (
	sendTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Notification send attempts by channel and final status.",
	}, []string{"channel", "status"})
	bulkSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notifications_bulk_size",
		Help:    "Number of messages per bulk send.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
)

// Service records and dispatches notifications. Its methods never return
// errors: failures are logged and reported as false, zero or empty values.
type Service struct {
	repo       domainnotif.Repo
	transports map[domainnotif.Channel]domainnotif.Transport
	preferred  domainnotif.Channel
	events     realtime.Publisher
	clock      domainnotif.Clock
	log        *zap.Logger
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

func New(repo domainnotif.Repo, transports map[domainnotif.Channel]domainnotif.Transport, cfg Config, log *zap.Logger) *Service {
	preferred := cfg.PreferredChannel
	if preferred != domainnotif.ChannelEmail {
		preferred = domainnotif.ChannelSMS
	}
	return &Service{
		repo:       repo,
		transports: transports,
		preferred:  preferred,
		clock:      utcClock{},
		log:        obs.Component(log, "notification.service"),
	}
}

// WithEvents publishes every record change to pub so recipients can follow
// their notifications live.
func (s *Service) WithEvents(pub realtime.Publisher) *Service {
	s.events = pub
	return s
}

func (s *Service) WithClock(c domainnotif.Clock) *Service {
	if c != nil {
		s.clock = c
	}
	return s
}

func rowOf(n *domainnotif.Notification) map[string]any {
	row := map[string]any{
		"id":           n.ID,
		"recipient_id": n.RecipientID,
		"channel":      string(n.Channel),
		"title":        n.Title,
		"message":      n.Message,
		"status":       string(n.Status),
		"is_read":      n.Read,
		"created_at":   n.CreatedAt,
	}
	if n.ProviderMessageID != "" {
		row["provider_message_id"] = n.ProviderMessageID
	}
	if n.Error != "" {
		row["error"] = n.Error
	}
	if n.SentAt != nil {
		row["sent_at"] = *n.SentAt
	}
	if n.ReadAt != nil {
		row["read_at"] = *n.ReadAt
	}
	return row
}

// emit publishes a notifications change event. Failures only log.
func (s *Service) emit(ctx context.Context, op realtime.Op, row map[string]any) {
	if s.events == nil {
		return
	}
	ev := realtime.ChangeEvent{Table: Table, Op: op, Row: row, At: s.clock.Now()}
	if err := s.events.PublishChange(ctx, ev); err != nil {
		obs.WithTrace(ctx, s.log).Warn("notification change not published",
			zap.String("op", string(op)), zap.Any("recipient_id", row["recipient_id"]), zap.Error(err))
	}
}

// Send stores a pending record, hands the message to the channel transport
// and stores the outcome. It reports whether the transport succeeded.
func (s *Service) Send(ctx context.Context, m domainnotif.Message) bool {
	ctx, span := obs.StartSpan(ctx, "notification.service", "notification.send",
		attribute.Int64("recipient.id", m.RecipientID),
		attribute.String("channel", string(m.Channel)),
	)
	defer span.End()
	log := obs.WithTrace(ctx, s.log).With(zap.Int64("recipient_id", m.RecipientID), zap.String("channel", string(m.Channel)))

	tr, ok := s.transports[m.Channel]
	if !ok {
		log.Warn("no transport for channel")
		sendTotal.WithLabelValues(string(m.Channel), "rejected").Inc()
		return false
	}

	n := &domainnotif.Notification{
		RecipientID: m.RecipientID,
		Channel:     m.Channel,
		Title:       m.Title,
		Message:     m.Body,
		Status:      domainnotif.StatusPending,
	}
	if len(m.Data) > 0 {
		raw, err := json.Marshal(m.Data)
		if err != nil {
			log.Warn("notification data dropped", zap.Error(err))
		} else {
			n.Data = raw
		}
	}
	if err := s.repo.Create(ctx, n); err != nil {
		span.RecordError(err)
		log.Error("notification record create failed", zap.Error(err))
		sendTotal.WithLabelValues(string(m.Channel), "unrecorded").Inc()
		return false
	}
	s.emit(ctx, realtime.OpInsert, rowOf(n))

	d := tr.Deliver(ctx, m.Address, m.Title, m.Body)

	status := domainnotif.StatusSent
	if !d.Success {
		status = domainnotif.StatusFailed
	}
	if err := s.repo.UpdateStatus(ctx, n.ID, status, d.MessageID, d.Error); err != nil {
		span.RecordError(err)
		log.Error("notification status update failed", zap.Int64("notification_id", n.ID), zap.Error(err))
	} else {
		n.Status, n.ProviderMessageID, n.Error = status, d.MessageID, d.Error
		if d.Success {
			at := s.clock.Now()
			n.SentAt = &at
		}
		s.emit(ctx, realtime.OpUpdate, rowOf(n))
	}
	sendTotal.WithLabelValues(string(m.Channel), string(status)).Inc()
	span.SetAttributes(attribute.String("status", string(status)), attribute.Bool("simulated", d.Simulated))

	if !d.Success {
		log.Warn("notification delivery failed", zap.Int64("notification_id", n.ID), zap.String("error", d.Error))
	}
	return d.Success
}

// SendBulk sends every message concurrently and waits for all of them.
// One failure never stops the others.
func (s *Service) SendBulk(ctx context.Context, msgs []domainnotif.Message) domainnotif.BulkResult {
	bulkSize.Observe(float64(len(msgs)))

	var (
		wg      sync.WaitGroup
		success atomic.Int64
	)
	for _, m := range msgs {
		wg.Add(1)
		go func(m domainnotif.Message) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("notification send panicked", zap.Any("panic", r))
				}
			}()
			if s.Send(ctx, m) {
				success.Add(1)
			}
		}(m)
	}
	wg.Wait()

	ok := int(success.Load())
	return domainnotif.BulkResult{Success: ok, Failed: len(msgs) - ok, Total: len(msgs)}
}

func (s *Service) List(ctx context.Context, recipientID int64, limit, offset int) []*domainnotif.Notification {
	limit, offset = content.Filter{Limit: limit, Offset: offset}.Window()
	out, err := s.repo.ListByRecipient(ctx, recipientID, limit, offset)
	if err != nil {
		obs.WithTrace(ctx, s.log).Error("list notifications failed", zap.Int64("recipient_id", recipientID), zap.Error(err))
		return []*domainnotif.Notification{}
	}
	if out == nil {
		out = []*domainnotif.Notification{}
	}
	return out
}

func (s *Service) MarkRead(ctx context.Context, recipientID, id int64) bool {
	ok, err := s.repo.MarkRead(ctx, recipientID, id)
	if err != nil {
		obs.WithTrace(ctx, s.log).Error("mark read failed", zap.Int64("notification_id", id), zap.Error(err))
		return false
	}
	if ok {
		s.emit(ctx, realtime.OpUpdate, map[string]any{
			"id": id, "recipient_id": recipientID, "is_read": true, "read_at": s.clock.Now(),
		})
	}
	return ok
}

func (s *Service) MarkAllRead(ctx context.Context, recipientID int64) int64 {
	n, err := s.repo.MarkAllRead(ctx, recipientID)
	if err != nil {
		obs.WithTrace(ctx, s.log).Error("mark all read failed", zap.Int64("recipient_id", recipientID), zap.Error(err))
		return 0
	}
	if n > 0 {
		// one event covers every row of the recipient
		s.emit(ctx, realtime.OpUpdate, map[string]any{
			"recipient_id": recipientID, "is_read": true, "read_at": s.clock.Now(), "count": n,
		})
	}
	return n
}

func (s *Service) UnreadCount(ctx context.Context, recipientID int64) int {
	n, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		obs.WithTrace(ctx, s.log).Error("count unread failed", zap.Int64("recipient_id", recipientID), zap.Error(err))
		return 0
	}
	return n
}
