package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type noWait struct{}

func (noWait) Next(int) time.Duration { return 0 }

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, Policy{Name: "test_success", Attempts: 5, Backoff: noWait{}})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanent(t *testing.T) {
	boom := errors.New("rejected")
	calls := 0
	exhausted := false
	err := Do(context.Background(), func() error {
		calls++
		return Permanent(boom)
	}, Policy{
		Name: "test_permanent", Attempts: 5, Backoff: noWait{},
		OnExhaust: func(error) { exhausted = true },
	})

	assert.ErrorIs(t, err, boom)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
	assert.True(t, exhausted)
}

func TestDoHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func() error { return errors.New("down") },
		Policy{Name: "test_ctx", Attempts: 3, Backoff: ExpoJitter{Base: time.Second}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpoJitterCapsAtMax(t *testing.T) {
	b := ExpoJitter{Base: 100 * time.Millisecond, Max: time.Second}
	assert.Equal(t, 100*time.Millisecond, b.Next(0))
	assert.Equal(t, 400*time.Millisecond, b.Next(2))
	assert.Equal(t, time.Second, b.Next(10))
}
