package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainnotif "github.com/NordCoder/EduPortal/internal/domain/notification"
	"github.com/NordCoder/EduPortal/internal/domain/profile"
	"github.com/NordCoder/EduPortal/internal/domain/realtime"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.ChangeEvent
	err    error
}

func (p *recordingPublisher) PublishChange(_ context.Context, ev realtime.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var clockNow = time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)

func TestSendPublishesRecordChanges(t *testing.T) {
	sms := &mockTransport{}
	sms.On("Deliver", mock.Anything, "5551234567", "Hi", "Body").
		Return(domainnotif.Delivery{Success: true, MessageID: "SM9"}).Once()
	pub := &recordingPublisher{}
	svc := newService(newFakeRepo(), sms, &mockTransport{}).WithEvents(pub).WithClock(fixedClock{clockNow})

	ok := svc.Send(context.Background(), domainnotif.Message{
		RecipientID: 7, Channel: domainnotif.ChannelSMS, Address: "5551234567", Title: "Hi", Body: "Body",
	})
	require.True(t, ok)
	require.Len(t, pub.events, 2)

	ins, upd := pub.events[0], pub.events[1]
	assert.Equal(t, Table, ins.Table)
	assert.Equal(t, realtime.OpInsert, ins.Op)
	assert.Equal(t, string(domainnotif.StatusPending), ins.Row["status"])
	assert.Equal(t, int64(7), ins.Row["recipient_id"])
	assert.Equal(t, clockNow, ins.At)

	assert.Equal(t, realtime.OpUpdate, upd.Op)
	assert.Equal(t, string(domainnotif.StatusSent), upd.Row["status"])
	assert.Equal(t, "SM9", upd.Row["provider_message_id"])
	assert.Equal(t, clockNow, upd.Row["sent_at"])
	assert.Equal(t, ins.Row["id"], upd.Row["id"])

	own := realtime.Channel{Table: Table, Column: "recipient_id", Value: "7"}
	other := realtime.Channel{Table: Table, Column: "recipient_id", Value: "8"}
	assert.True(t, own.Matches(ins))
	assert.False(t, other.Matches(ins))
}

func TestReadTrackingPublishesUpdates(t *testing.T) {
	repo := newFakeRepo()
	sms := &mockTransport{}
	sms.On("Deliver", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(domainnotif.Delivery{Success: true})
	svc := newService(repo, sms, &mockTransport{})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		svc.Send(ctx, domainnotif.Message{RecipientID: 7, Channel: domainnotif.ChannelSMS, Address: "5551234567"})
	}

	pub := &recordingPublisher{}
	svc.WithEvents(pub).WithClock(fixedClock{clockNow})

	assert.False(t, svc.MarkRead(ctx, 8, 1))
	assert.Empty(t, pub.events, "a refused mark-read publishes nothing")

	assert.True(t, svc.MarkRead(ctx, 7, 1))
	assert.Equal(t, int64(1), svc.MarkAllRead(ctx, 7))
	assert.Zero(t, svc.MarkAllRead(ctx, 7))

	require.Len(t, pub.events, 2)
	assert.Equal(t, map[string]any{"id": int64(1), "recipient_id": int64(7), "is_read": true, "read_at": clockNow}, pub.events[0].Row)
	assert.Equal(t, int64(7), pub.events[1].Row["recipient_id"])
	assert.Equal(t, int64(1), pub.events[1].Row["count"])
}

func TestSendSurvivesPublishFailure(t *testing.T) {
	email := &mockTransport{}
	email.On("Deliver", mock.Anything, "jane@example.com", mock.Anything, mock.Anything).
		Return(domainnotif.Delivery{Success: true}).Once()
	svc := newService(newFakeRepo(), &mockTransport{}, email).WithEvents(&recordingPublisher{err: errors.New("outbox down")})

	assert.True(t, svc.SendWelcome(context.Background(), &profile.Profile{ID: 4, FullName: "Jane", Email: "jane@example.com"}))
	email.AssertExpectations(t)
}
