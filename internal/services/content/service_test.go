package content

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/domain"
	"github.com/NordCoder/EduPortal/internal/domain/content"
	domainnotif "github.com/NordCoder/EduPortal/internal/domain/notification"
	"github.com/NordCoder/EduPortal/internal/domain/profile"
	"github.com/NordCoder/EduPortal/internal/domain/realtime"
	notifsvc "github.com/NordCoder/EduPortal/internal/services/notification"
	"github.com/NordCoder/EduPortal/internal/validation"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendAnnouncement(ctx context.Context, recipients []*profile.Profile, a *content.Item) domainnotif.BulkResult {
	return m.Called(ctx, recipients, a).Get(0).(domainnotif.BulkResult)
}

func (m *mockNotifier) SendUrgentAlert(ctx context.Context, recipients []*profile.Profile, a *content.Item) domainnotif.BulkResult {
	return m.Called(ctx, recipients, a).Get(0).(domainnotif.BulkResult)
}

func (m *mockNotifier) SendExamResult(ctx context.Context, student *profile.Profile, exam *content.Item) bool {
	return m.Called(ctx, student, exam).Bool(0)
}

type fixture struct {
	svc      *Service
	repo     *memContent
	profiles *memProfiles
	notifier *mockNotifier
	events   *recordingEvents
}

func newFixture(author int64) *fixture {
	f := &fixture{
		repo:     newMemContent(),
		profiles: &memProfiles{},
		notifier: &mockNotifier{},
		events:   &recordingEvents{},
	}
	f.svc = New(f.repo, f.profiles, f.notifier, f.events, fixedIdentity{id: author}, validation.New(), zap.NewNop())
	return f
}

func TestCreateRequiresIdentity(t *testing.T) {
	f := newFixture(0)
	_, err := f.svc.Create(context.Background(), content.KindNews, &content.Item{Title: "Hello"})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.Empty(t, f.repo.items)
}

func TestCreateValidates(t *testing.T) {
	f := newFixture(1)
	_, err := f.svc.Create(context.Background(), content.KindNews, &content.Item{Title: "   "})
	require.ErrorIs(t, err, domain.ErrValidation)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "title")

	_, err = f.svc.Create(context.Background(), content.KindEvent, &content.Item{Title: "Fair"})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "event_date")

	_, err = f.svc.Create(context.Background(), content.KindExamResult, &content.Item{Title: "Final",
		Exam: &content.ExamResult{StudentID: 2, Subject: "Math", Marks: 120, MaxMarks: 100}})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "exam.marks")
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	f := newFixture(1)
	_, err := f.svc.Create(context.Background(), content.Kind("gallery"), &content.Item{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateExamResultDerivesGradeAndEmits(t *testing.T) {
	f := newFixture(4)
	it, err := f.svc.Create(context.Background(), content.KindExamResult, &content.Item{
		Title: "Algebra Final",
		Exam:  &content.ExamResult{StudentID: 9, Subject: "Math", Marks: 72, MaxMarks: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), it.AuthorID)
	assert.Equal(t, "B+", it.Exam.Grade)

	require.Len(t, f.events.events, 1)
	ev := f.events.events[0]
	assert.Equal(t, "exam_results", ev.Table)
	assert.Equal(t, realtime.OpInsert, ev.Op)
	assert.True(t, realtime.Channel{Table: "exam_results", Column: "student_id", Value: "9"}.Matches(ev))
}

func TestCreateSurvivesEventFailure(t *testing.T) {
	f := newFixture(1)
	f.events.err = errors.New("outbox down")
	_, err := f.svc.Create(context.Background(), content.KindNews, &content.Item{Title: "Hello"})
	assert.NoError(t, err)
}

func TestUpdateRules(t *testing.T) {
	f := newFixture(1)
	ctx := context.Background()
	it, err := f.svc.Create(ctx, content.KindExamResult, &content.Item{
		Title: "Final",
		Exam:  &content.ExamResult{StudentID: 9, Subject: "Math", Marks: 95, MaxMarks: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, "A+", it.Exam.Grade)

	_, err = f.svc.Update(ctx, content.KindExamResult, it.ID, content.Patch{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	marks := 45.0
	updated, err := f.svc.Update(ctx, content.KindExamResult, it.ID, content.Patch{Marks: &marks})
	require.NoError(t, err)
	assert.Equal(t, "D", updated.Exam.Grade)

	tooMany := 140.0
	_, err = f.svc.Update(ctx, content.KindExamResult, it.ID, content.Patch{Marks: &tooMany})
	assert.ErrorIs(t, err, domain.ErrValidation)

	title := "Moved"
	_, err = f.svc.Update(ctx, content.KindExamResult, 999, content.Patch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteNotFoundAndEvent(t *testing.T) {
	f := newFixture(1)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Delete(ctx, content.KindNews, 42), domain.ErrNotFound)

	it, err := f.svc.Create(ctx, content.KindNews, &content.Item{Title: "Bye"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, content.KindNews, it.ID))

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, realtime.OpDelete, last.Op)
	assert.EqualValues(t, it.ID, last.Row["id"])
	assert.Equal(t, false, last.Row["published"], "delete event carries the stored row")
}

func TestPublishUrgentAnnouncementUsesUrgentAlert(t *testing.T) {
	f := newFixture(1)
	ctx := context.Background()
	f.profiles.all = []*profile.Profile{{ID: 10, Role: profile.RoleStudent, Phone: "5550000001"}}

	it, err := f.svc.Create(ctx, content.KindAnnouncement, &content.Item{Title: "Closure", Type: content.AnnouncementUrgent})
	require.NoError(t, err)

	f.notifier.On("SendUrgentAlert", mock.Anything, f.profiles.all, mock.Anything).
		Return(domainnotif.BulkResult{Success: 1, Total: 1}).Once()

	pub, err := f.svc.Publish(ctx, content.KindAnnouncement, it.ID)
	require.NoError(t, err)
	assert.True(t, pub.Published)
	assert.NotNil(t, pub.PublishedAt)
	f.notifier.AssertExpectations(t)
	f.notifier.AssertNotCalled(t, "SendAnnouncement", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishExamResultNotifiesStudent(t *testing.T) {
	f := newFixture(1)
	ctx := context.Background()
	student := &profile.Profile{ID: 9, FullName: "Jane", Role: profile.RoleStudent, Email: "jane@example.com"}
	f.profiles.all = []*profile.Profile{student}

	it, err := f.svc.Create(ctx, content.KindExamResult, &content.Item{
		Title: "Final", Exam: &content.ExamResult{StudentID: 9, Subject: "Math", Marks: 80, MaxMarks: 100},
	})
	require.NoError(t, err)

	f.notifier.On("SendExamResult", mock.Anything, student, mock.Anything).Return(true).Once()
	_, err = f.svc.Publish(ctx, content.KindExamResult, it.ID)
	require.NoError(t, err)
	f.notifier.AssertExpectations(t)
}

func TestPublishNewsHasNoFanOut(t *testing.T) {
	f := newFixture(1)
	ctx := context.Background()
	it, err := f.svc.Create(ctx, content.KindNews, &content.Item{Title: "Hello"})
	require.NoError(t, err)

	_, err = f.svc.Publish(ctx, content.KindNews, it.ID)
	require.NoError(t, err)
	f.notifier.AssertNotCalled(t, "SendAnnouncement", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishSurvivesFanOutFailure(t *testing.T) {
	f := newFixture(1)
	ctx := context.Background()
	f.profiles.listErr = errDB

	it, err := f.svc.Create(ctx, content.KindAnnouncement, &content.Item{Title: "Hello"})
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, content.KindAnnouncement, it.ID)
	assert.NoError(t, err)
}

type countingTransport struct {
	calls atomic.Int64
}

func (c *countingTransport) Deliver(context.Context, string, string, string) domainnotif.Delivery {
	c.calls.Add(1)
	return domainnotif.Delivery{Success: true, MessageID: "x"}
}

type nopNotifRepo struct {
	next atomic.Int64
}

func (r *nopNotifRepo) Create(_ context.Context, n *domainnotif.Notification) error {
	n.ID = r.next.Add(1)
	return nil
}
func (r *nopNotifRepo) UpdateStatus(context.Context, int64, domainnotif.Status, string, string) error {
	return nil
}
func (r *nopNotifRepo) ListByRecipient(context.Context, int64, int, int) ([]*domainnotif.Notification, error) {
	return nil, nil
}
func (r *nopNotifRepo) MarkRead(context.Context, int64, int64) (bool, error) { return false, nil }
func (r *nopNotifRepo) MarkAllRead(context.Context, int64) (int64, error)   { return 0, nil }
func (r *nopNotifRepo) CountUnread(context.Context, int64) (int, error)     { return 0, nil }

func TestAnnouncementFanOutAttemptsEveryReachableRecipient(t *testing.T) {
	sms, email := &countingTransport{}, &countingTransport{}
	notifier := notifsvc.New(&nopNotifRepo{}, map[domainnotif.Channel]domainnotif.Transport{
		domainnotif.ChannelSMS:   sms,
		domainnotif.ChannelEmail: email,
	}, notifsvc.Config{}, zap.NewNop())

	profiles := &memProfiles{all: []*profile.Profile{
		{ID: 1, Role: profile.RoleStudent, Phone: "5550000001"},
		{ID: 2, Role: profile.RoleStudent, Email: "s2@example.com"},
		{ID: 3, Role: profile.RoleStudent},
		{ID: 4, Role: profile.RoleTeacher, Phone: "5550000004", Email: "t4@example.com"},
		{ID: 5, Role: profile.RoleAdmin, Phone: "5550000005"},
	}}
	repo := newMemContent()
	svc := New(repo, profiles, notifier, nil, fixedIdentity{id: 5}, validation.New(), zap.NewNop())
	ctx := context.Background()

	it, err := svc.Create(ctx, content.KindAnnouncement, &content.Item{Title: "Sports day", Body: "Friday"})
	require.NoError(t, err)
	_, err = svc.Publish(ctx, content.KindAnnouncement, it.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(3), sms.calls.Load()+email.calls.Load())
	assert.Equal(t, int64(2), sms.calls.Load())
}

func TestStats(t *testing.T) {
	f := newFixture(1)
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		_, err := f.svc.Create(ctx, content.KindNews, &content.Item{Title: title})
		require.NoError(t, err)
	}
	_, err := f.svc.Publish(ctx, content.KindNews, 1)
	require.NoError(t, err)

	st := f.svc.Stats(ctx)
	assert.Equal(t, int64(3), st.TotalNews)
	assert.Equal(t, int64(1), st.PublishedNews)
	assert.Zero(t, st.TotalEvents)

	f.repo.countErr[content.KindEvent] = errDB
	assert.Equal(t, content.Stats{}, f.svc.Stats(ctx))
}

func TestListClampsWindow(t *testing.T) {
	f := newFixture(1)
	items, err := f.svc.List(context.Background(), content.KindNews, content.Filter{Limit: 1000})
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestListDegradesOnStoreFailure(t *testing.T) {
	f := newFixture(1)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, content.KindNews, &content.Item{Title: "Kept"})
	require.NoError(t, err)

	f.repo.listErr = errDB
	items, err := f.svc.List(ctx, content.KindNews, content.Filter{})
	assert.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	f.repo.listErr = domain.Invalid("student_id", "news cannot be filtered by student")
	_, err = f.svc.List(ctx, content.KindNews, content.Filter{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.List(ctx, content.Kind("gossip"), content.Filter{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
