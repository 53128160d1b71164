package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/domain/content"
	domainnotif "github.com/NordCoder/EduPortal/internal/domain/notification"
	"github.com/NordCoder/EduPortal/internal/domain/profile"
)

type mockEvents struct{ mock.Mock }

func (m *mockEvents) DueEvents(ctx context.Context, from, to time.Time, limit int) ([]*content.Item, error) {
	args := m.Called(ctx, from, to, limit)
	items, _ := args.Get(0).([]*content.Item)
	return items, args.Error(1)
}

func (m *mockEvents) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type mockAudience struct{ mock.Mock }

func (m *mockAudience) ListByRoles(ctx context.Context, roles ...profile.Role) ([]*profile.Profile, error) {
	args := m.Called(ctx, roles)
	ps, _ := args.Get(0).([]*profile.Profile)
	return ps, args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) SendEventReminder(ctx context.Context, recipients []*profile.Profile, ev *content.Item) domainnotif.BulkResult {
	return m.Called(ctx, recipients, ev).Get(0).(domainnotif.BulkResult)
}

var now = time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)

func TestTickRemindsAndMarks(t *testing.T) {
	events, audience, notifier := &mockEvents{}, &mockAudience{}, &mockNotifier{}
	uc := NewUC(events, audience, notifier, zap.NewNop())

	due := []*content.Item{{ID: 1, Kind: content.KindEvent}, {ID: 2, Kind: content.KindEvent}}
	people := []*profile.Profile{{ID: 10, Phone: "5550000010"}}

	events.On("DueEvents", mock.Anything, now, now.Add(24*time.Hour), 50).Return(due, nil)
	audience.On("ListByRoles", mock.Anything, []profile.Role{profile.RoleStudent, profile.RoleTeacher}).Return(people, nil)
	notifier.On("SendEventReminder", mock.Anything, people, due[0]).Return(domainnotif.BulkResult{Success: 1, Total: 1})
	notifier.On("SendEventReminder", mock.Anything, people, due[1]).Return(domainnotif.BulkResult{Failed: 1, Total: 1})
	events.On("MarkReminded", mock.Anything, int64(1), now).Return(nil).Once()

	res, err := uc.Tick(context.Background(), now, 24*time.Hour, 50)
	require.NoError(t, err)
	assert.Equal(t, TickResult{Fetched: 2, Reminded: 1, Errors: 1}, res)
	events.AssertExpectations(t)
	events.AssertNotCalled(t, "MarkReminded", mock.Anything, int64(2), mock.Anything)
}

func TestTickNobodyReachableStillMarks(t *testing.T) {
	events, audience, notifier := &mockEvents{}, &mockAudience{}, &mockNotifier{}
	uc := NewUC(events, audience, notifier, zap.NewNop())

	ev := &content.Item{ID: 3, Kind: content.KindEvent}
	events.On("DueEvents", mock.Anything, mock.Anything, mock.Anything, 100).Return([]*content.Item{ev}, nil)
	audience.On("ListByRoles", mock.Anything, mock.Anything).Return([]*profile.Profile{}, nil)
	notifier.On("SendEventReminder", mock.Anything, mock.Anything, ev).Return(domainnotif.BulkResult{})
	events.On("MarkReminded", mock.Anything, int64(3), now).Return(nil)

	res, err := uc.Tick(context.Background(), now, time.Hour, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reminded)
}

func TestTickNothingDue(t *testing.T) {
	events, audience, notifier := &mockEvents{}, &mockAudience{}, &mockNotifier{}
	uc := NewUC(events, audience, notifier, zap.NewNop())
	events.On("DueEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	res, err := uc.Tick(context.Background(), now, time.Hour, 10)
	require.NoError(t, err)
	assert.Zero(t, res.Fetched)
	audience.AssertNotCalled(t, "ListByRoles", mock.Anything, mock.Anything)
}

func TestTickFetchError(t *testing.T) {
	events := &mockEvents{}
	uc := NewUC(events, &mockAudience{}, &mockNotifier{}, zap.NewNop())
	events.On("DueEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	res, err := uc.Tick(context.Background(), now, time.Hour, 10)
	assert.Error(t, err)
	assert.Equal(t, 1, res.Errors)
}

func TestTickGivesUpAfterMaxAttempts(t *testing.T) {
	events, audience, notifier := &mockEvents{}, &mockAudience{}, &mockNotifier{}
	uc := NewUC(events, audience, notifier, zap.NewNop())
	uc.MaxAttempts = 3

	ev := &content.Item{ID: 7, Kind: content.KindEvent}
	people := []*profile.Profile{{ID: 10, Phone: "5550000010"}}
	events.On("DueEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]*content.Item{ev}, nil)
	audience.On("ListByRoles", mock.Anything, mock.Anything).Return(people, nil)
	notifier.On("SendEventReminder", mock.Anything, people, ev).Return(domainnotif.BulkResult{Failed: 1, Total: 1})
	events.On("MarkReminded", mock.Anything, int64(7), mock.Anything).Return(nil).Once()

	for i := 0; i < 2; i++ {
		res, err := uc.Tick(context.Background(), now, time.Hour, 10)
		require.NoError(t, err)
		assert.Equal(t, TickResult{Fetched: 1, Errors: 1}, res)
	}
	events.AssertNotCalled(t, "MarkReminded", mock.Anything, mock.Anything, mock.Anything)

	res, err := uc.Tick(context.Background(), now, time.Hour, 10)
	require.NoError(t, err)
	assert.Equal(t, TickResult{Fetched: 1, Abandoned: 1, Errors: 1}, res)
	events.AssertExpectations(t)
	assert.Empty(t, uc.failures)
}

func TestTickSuccessResetsAttempts(t *testing.T) {
	events, audience, notifier := &mockEvents{}, &mockAudience{}, &mockNotifier{}
	uc := NewUC(events, audience, notifier, zap.NewNop())
	uc.MaxAttempts = 2

	ev := &content.Item{ID: 8, Kind: content.KindEvent}
	events.On("DueEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]*content.Item{ev}, nil)
	audience.On("ListByRoles", mock.Anything, mock.Anything).Return([]*profile.Profile{{ID: 1}}, nil)
	notifier.On("SendEventReminder", mock.Anything, mock.Anything, ev).Return(domainnotif.BulkResult{Failed: 1, Total: 1}).Once()
	notifier.On("SendEventReminder", mock.Anything, mock.Anything, ev).Return(domainnotif.BulkResult{Success: 1, Total: 1}).Once()
	events.On("MarkReminded", mock.Anything, int64(8), now).Return(nil).Once()

	_, err := uc.Tick(context.Background(), now, time.Hour, 10)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{8: 1}, uc.failures)

	res, err := uc.Tick(context.Background(), now, time.Hour, 10)
	require.NoError(t, err)
	assert.Equal(t, TickResult{Fetched: 1, Reminded: 1}, res)
	assert.Empty(t, uc.failures)
}
