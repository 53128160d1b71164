package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/NordCoder/EduPortal/internal/domain/realtime"
)

func TestChangeEventThroughHandler(t *testing.T) {
	at := time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)
	published := at.Add(time.Minute)
	ev := realtime.ChangeEvent{
		Table: "news",
		Op:    realtime.OpUpdate,
		At:    at,
		Row: map[string]any{
			"id":           int64(12),
			"title":        "Sports day",
			"published":    true,
			"published_at": &published,
		},
	}

	msg, err := EncodeChangeEvent(ev)
	require.NoError(t, err)
	value, err := proto.Marshal(msg)
	require.NoError(t, err)

	var got realtime.ChangeEvent
	h := ChangeEventHandler(func(_ context.Context, e realtime.ChangeEvent) error {
		got = e
		return nil
	})
	require.NoError(t, h(context.Background(), ChangeKey(ev), value))

	assert.Equal(t, "news", got.Table)
	assert.Equal(t, realtime.OpUpdate, got.Op)
	assert.True(t, at.Equal(got.At))
	assert.Equal(t, float64(12), got.Row["id"])
	assert.Equal(t, true, got.Row["published"])
	assert.Equal(t, published.Format(time.RFC3339Nano), got.Row["published_at"])
	assert.True(t, realtime.Channel{Table: "news", Column: "id", Value: "12"}.Matches(got))
}

func TestChangeKey(t *testing.T) {
	assert.Equal(t, []byte("events:3"), ChangeKey(realtime.ChangeEvent{Table: "events", Row: map[string]any{"id": 3}}))
	assert.Equal(t, []byte("events"), ChangeKey(realtime.ChangeEvent{Table: "events"}))
}

func TestDecodeRejectsUnknownOp(t *testing.T) {
	msg, err := EncodeChangeEvent(realtime.ChangeEvent{Table: "news", Op: "truncate"})
	require.NoError(t, err)
	_, err = DecodeChangeEvent(msg)
	assert.Error(t, err)
}
