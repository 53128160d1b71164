package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/domain/outbox"
	"github.com/NordCoder/EduPortal/internal/domain/realtime"
	"github.com/NordCoder/EduPortal/internal/obs/retry"
)

type memRepo struct {
	mu      sync.Mutex
	pending []outbox.Message
	done    []string
}

func (m *memRepo) Enqueue(_ context.Context, key string, kind outbox.Kind, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, outbox.Message{IdempotencyKey: key, Kind: kind, Data: data, Status: outbox.StatusCreated})
	return nil
}

func (m *memRepo) PickBatch(_ context.Context, batch int, _ time.Duration) ([]outbox.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if batch > len(m.pending) {
		batch = len(m.pending)
	}
	out := m.pending[:batch]
	m.pending = m.pending[batch:]
	return out, nil
}

func (m *memRepo) MarkSuccess(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = append(m.done, keys...)
	return nil
}

type recordingPublisher struct {
	events []realtime.ChangeEvent
	fail   bool
}

func (p *recordingPublisher) PublishChange(_ context.Context, ev realtime.ChangeEvent) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, ev)
	return nil
}

func TestPublisherAndRunnerDeliverChangeEvents(t *testing.T) {
	repo := &memRepo{}
	pub := NewPublisher(repo)
	ctx := context.Background()

	ev := realtime.ChangeEvent{Table: "events", Op: realtime.OpInsert, Row: map[string]any{"id": 4}, At: time.Now().UTC()}
	require.NoError(t, pub.PublishChange(ctx, ev))
	require.NoError(t, pub.PublishChange(ctx, ev))
	require.Len(t, repo.pending, 2)
	assert.NotEqual(t, repo.pending[0].IdempotencyKey, repo.pending[1].IdempotencyKey)

	sink := &recordingPublisher{}
	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(sink, retry.Policy{Attempts: 1}), RunnerConfig{BatchSize: 10})

	assert.Equal(t, 2, r.Tick(ctx))
	assert.Len(t, repo.done, 2)
	require.Len(t, sink.events, 2)
	assert.Equal(t, "events", sink.events[0].Table)
	assert.Equal(t, realtime.OpInsert, sink.events[0].Op)
}

func TestRunnerLeavesFailedMessagesUnmarked(t *testing.T) {
	repo := &memRepo{}
	data, _ := json.Marshal(realtime.ChangeEvent{Table: "news", Op: realtime.OpDelete})
	repo.pending = []outbox.Message{
		{IdempotencyKey: "a", Kind: outbox.KindContentChanged, Data: data},
		{IdempotencyKey: "b", Kind: outbox.Kind(99), Data: data},
	}

	sink := &recordingPublisher{fail: true}
	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(sink, retry.Policy{Attempts: 1}), RunnerConfig{})

	assert.Equal(t, 0, r.Tick(context.Background()))
	assert.Empty(t, repo.done)
}

func TestHandlerRejectsGarbagePayload(t *testing.T) {
	h, err := MakeGlobalOutboxHandler(&recordingPublisher{}, retry.Policy{Attempts: 3})(outbox.KindContentChanged)
	require.NoError(t, err)

	err = h(context.Background(), []byte("{not json"))
	assert.True(t, retry.IsPermanent(err))
}
