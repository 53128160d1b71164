package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/auth"
	"github.com/NordCoder/EduPortal/internal/domain"
	domainauth "github.com/NordCoder/EduPortal/internal/domain/auth"
	"github.com/NordCoder/EduPortal/internal/domain/content"
	"github.com/NordCoder/EduPortal/internal/domain/profile"
)

type mockService struct{ mock.Mock }

func (m *mockService) List(ctx context.Context, kind content.Kind, f content.Filter) ([]*content.Item, error) {
	args := m.Called(ctx, kind, f)
	items, _ := args.Get(0).([]*content.Item)
	return items, args.Error(1)
}

func (m *mockService) Get(ctx context.Context, kind content.Kind, id int64) (*content.Item, error) {
	args := m.Called(ctx, kind, id)
	it, _ := args.Get(0).(*content.Item)
	return it, args.Error(1)
}

func (m *mockService) Create(ctx context.Context, kind content.Kind, it *content.Item) (*content.Item, error) {
	args := m.Called(ctx, kind, it)
	out, _ := args.Get(0).(*content.Item)
	return out, args.Error(1)
}

func (m *mockService) Update(ctx context.Context, kind content.Kind, id int64, p content.Patch) (*content.Item, error) {
	args := m.Called(ctx, kind, id, p)
	out, _ := args.Get(0).(*content.Item)
	return out, args.Error(1)
}

func (m *mockService) Delete(ctx context.Context, kind content.Kind, id int64) error {
	return m.Called(ctx, kind, id).Error(0)
}

func (m *mockService) Publish(ctx context.Context, kind content.Kind, id int64) (*content.Item, error) {
	args := m.Called(ctx, kind, id)
	out, _ := args.Get(0).(*content.Item)
	return out, args.Error(1)
}

func (m *mockService) Stats(ctx context.Context) content.Stats {
	return m.Called(ctx).Get(0).(content.Stats)
}

func serve(t *testing.T, svc Service, req *http.Request, who *domainauth.Identity) *httptest.ResponseRecorder {
	t.Helper()
	mux := runtime.NewServeMux()
	require.NoError(t, NewServer(zap.NewNop(), svc).Register(mux))
	if who != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), *who))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

var (
	admin   = &domainauth.Identity{ID: 1, Role: profile.RoleAdmin}
	student = &domainauth.Identity{ID: 9, Role: profile.RoleStudent}
)

func TestAnonymousListSeesOnlyPublished(t *testing.T) {
	svc := &mockService{}
	svc.On("List", mock.Anything, content.KindNews, mock.MatchedBy(func(f content.Filter) bool {
		return f.Published != nil && *f.Published && f.Limit == 5
	})).Return([]*content.Item{{ID: 1, Kind: content.KindNews, Title: "Hi", Published: true}}, nil)

	rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/v1/content/news?published=false&limit=5", nil), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
	svc.AssertExpectations(t)
}

func TestStudentExamListIsScopedToSelf(t *testing.T) {
	svc := &mockService{}
	svc.On("List", mock.Anything, content.KindExamResult, mock.MatchedBy(func(f content.Filter) bool {
		return f.StudentID != nil && *f.StudentID == 9
	})).Return(nil, nil)

	rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/v1/content/exam_results?student_id=4", nil), student)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[]`)
	svc.AssertExpectations(t)
}

func TestAnonymousExamListNeedsAuth(t *testing.T) {
	rec := serve(t, &mockService{}, httptest.NewRequest(http.MethodGet, "/v1/content/exam_result", nil), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownKind(t *testing.T) {
	rec := serve(t, &mockService{}, httptest.NewRequest(http.MethodGet, "/v1/content/gallery", nil), admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetHidesDraftsFromStudents(t *testing.T) {
	svc := &mockService{}
	svc.On("Get", mock.Anything, content.KindEvent, int64(4)).
		Return(&content.Item{ID: 4, Kind: content.KindEvent, Title: "Draft"}, nil)

	rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/v1/content/event/4", nil), student)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, svc, httptest.NewRequest(http.MethodGet, "/v1/content/event/4", nil), admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetOtherStudentsExamIsForbidden(t *testing.T) {
	svc := &mockService{}
	svc.On("Get", mock.Anything, content.KindExamResult, int64(2)).Return(&content.Item{
		ID: 2, Kind: content.KindExamResult, Published: true,
		Exam: &content.ExamResult{StudentID: 5},
	}, nil)

	rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/v1/content/exam_result/2", nil), student)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateRequiresStaff(t *testing.T) {
	svc := &mockService{}
	body := `{"title":"Sports day"}`

	rec := serve(t, svc, httptest.NewRequest(http.MethodPost, "/v1/content/news", strings.NewReader(body)), student)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	svc.On("Create", mock.Anything, content.KindNews, mock.MatchedBy(func(it *content.Item) bool {
		return it.Title == "Sports day"
	})).Return(&content.Item{ID: 7, Kind: content.KindNews, Title: "Sports day"}, nil)
	rec = serve(t, svc, httptest.NewRequest(http.MethodPost, "/v1/content/news", strings.NewReader(body)), admin)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":7`)
}

func TestCreateValidationFields(t *testing.T) {
	svc := &mockService{}
	svc.On("Create", mock.Anything, content.KindNews, mock.Anything).
		Return(nil, domain.Invalid("title", "this field cannot be blank"))

	rec := serve(t, svc, httptest.NewRequest(http.MethodPost, "/v1/content/news", strings.NewReader(`{"title":" "}`)), admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fields"`)
}

func TestUpdateDeletePublish(t *testing.T) {
	svc := &mockService{}
	title := "New"
	svc.On("Update", mock.Anything, content.KindAnnouncement, int64(3), content.Patch{Title: &title}).
		Return(&content.Item{ID: 3, Title: "New"}, nil)
	svc.On("Delete", mock.Anything, content.KindAnnouncement, int64(3)).Return(domain.ErrNotFound)
	svc.On("Publish", mock.Anything, content.KindAnnouncement, int64(3)).
		Return(&content.Item{ID: 3, Published: true}, nil)

	rec := serve(t, svc, httptest.NewRequest(http.MethodPatch, "/v1/content/announcements/3", strings.NewReader(`{"title":"New"}`)), admin)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, svc, httptest.NewRequest(http.MethodDelete, "/v1/content/announcement/3", nil), admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, svc, httptest.NewRequest(http.MethodPost, "/v1/content/announcement/3/publish", nil), admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"published":true`)

	rec = serve(t, svc, httptest.NewRequest(http.MethodPost, "/v1/content/announcement/abc/publish", nil), admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStats(t *testing.T) {
	svc := &mockService{}
	svc.On("Stats", mock.Anything).Return(content.Stats{TotalNews: 4, PublishedNews: 2})

	rec := serve(t, svc, httptest.NewRequest(http.MethodGet, "/v1/stats", nil), admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_news":4`)

	rec = serve(t, svc, httptest.NewRequest(http.MethodGet, "/v1/stats", nil), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
