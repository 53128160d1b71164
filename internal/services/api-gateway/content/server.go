package content

import (
	"context"
	"net/http"
	"strconv"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/auth"
	"github.com/NordCoder/EduPortal/internal/domain"
	domainauth "github.com/NordCoder/EduPortal/internal/domain/auth"
	"github.com/NordCoder/EduPortal/internal/domain/content"
	"github.com/NordCoder/EduPortal/internal/domain/profile"
	gwauth "github.com/NordCoder/EduPortal/internal/services/api-gateway/auth"
	"github.com/NordCoder/EduPortal/internal/services/api-gateway/httpx"
)

type Service interface {
	List(ctx context.Context, kind content.Kind, f content.Filter) ([]*content.Item, error)
	Get(ctx context.Context, kind content.Kind, id int64) (*content.Item, error)
	Create(ctx context.Context, kind content.Kind, it *content.Item) (*content.Item, error)
	Update(ctx context.Context, kind content.Kind, id int64, p content.Patch) (*content.Item, error)
	Delete(ctx context.Context, kind content.Kind, id int64) error
	Publish(ctx context.Context, kind content.Kind, id int64) (*content.Item, error)
	Stats(ctx context.Context) content.Stats
}

var staff = []profile.Role{profile.RoleTeacher, profile.RoleAdmin}

type Server struct {
	log *zap.Logger
	svc Service
}

func NewServer(log *zap.Logger, svc Service) *Server {
	return &Server{log: log.With(zap.String("component", "api.content")), svc: svc}
}

func (s *Server) Register(mux *runtime.ServeMux) error {
	routes := []struct {
		method, path string
		h            runtime.HandlerFunc
	}{
		{http.MethodGet, "/v1/stats", s.Stats},
		{http.MethodGet, "/v1/content/{kind}", s.List},
		{http.MethodPost, "/v1/content/{kind}", s.Create},
		{http.MethodGet, "/v1/content/{kind}/{id}", s.Get},
		{http.MethodPatch, "/v1/content/{kind}/{id}", s.Update},
		{http.MethodDelete, "/v1/content/{kind}/{id}", s.Delete},
		{http.MethodPost, "/v1/content/{kind}/{id}/publish", s.Publish},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.path, rt.h); err != nil {
			return err
		}
	}
	return nil
}

func kindParam(params map[string]string) (content.Kind, error) {
	kind, ok := content.ParseKind(params["kind"])
	if !ok {
		return "", domain.Invalid("kind", "must be one of news, announcement, event, exam_result")
	}
	return kind, nil
}

func kindAndID(params map[string]string) (content.Kind, int64, error) {
	kind, err := kindParam(params)
	if err != nil {
		return "", 0, err
	}
	id, err := httpx.Int64Param("id", params["id"])
	return kind, id, err
}

func isStaff(id domainauth.Identity, ok bool) bool {
	return ok && id.Is(staff...)
}

// filterFor reads query filters and narrows them to what the caller may see:
// anonymous callers and students only see published items, students only
// their own exam results, and exam results need a signed-in caller.
func filterFor(r *http.Request, kind content.Kind) (content.Filter, error) {
	q := r.URL.Query()
	var f content.Filter
	f.Limit, f.Offset = httpx.Window(r)

	if v := q.Get("published"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, domain.Invalid("published", "must be true or false")
		}
		f.Published = &b
	}
	if v := q.Get("author_id"); v != "" {
		n, err := httpx.Int64Param("author_id", v)
		if err != nil {
			return f, err
		}
		f.AuthorID = &n
	}
	if v := q.Get("type"); v != "" {
		f.Type = &v
	}
	if v := q.Get("student_id"); v != "" {
		n, err := httpx.Int64Param("student_id", v)
		if err != nil {
			return f, err
		}
		f.StudentID = &n
	}

	id, ok := auth.IdentityFromCtx(r.Context())
	if isStaff(id, ok) {
		return f, nil
	}
	if kind == content.KindExamResult {
		if !ok {
			return f, domain.ErrAuthRequired
		}
		self := id.ID
		f.StudentID = &self
	}
	published := true
	f.Published = &published
	return f, nil
}

// visible reports whether the caller may read it.
func visible(ctx context.Context, it *content.Item) error {
	id, ok := auth.IdentityFromCtx(ctx)
	if isStaff(id, ok) {
		return nil
	}
	if it.Kind == content.KindExamResult {
		if !ok {
			return domain.ErrAuthRequired
		}
		if it.Exam == nil || it.Exam.StudentID != id.ID {
			return domain.ErrForbidden
		}
	}
	if !it.Published {
		return domain.ErrNotFound
	}
	return nil
}

type listResponse struct {
	Items []*content.Item `json:"items"`
	Count int             `json:"count"`
}

func (s *Server) List(w http.ResponseWriter, r *http.Request, params map[string]string) {
	kind, err := kindParam(params)
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	f, err := filterFor(r, kind)
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	items, err := s.svc.List(r.Context(), kind, f)
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	if items == nil {
		items = []*content.Item{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Count: len(items)})
}

func (s *Server) Get(w http.ResponseWriter, r *http.Request, params map[string]string) {
	kind, id, err := kindAndID(params)
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	it, err := s.svc.Get(r.Context(), kind, id)
	if err == nil {
		err = visible(r.Context(), it)
	}
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, it)
}

func (s *Server) Create(w http.ResponseWriter, r *http.Request, params map[string]string) {
	kind, err := kindParam(params)
	if err == nil {
		_, err = gwauth.Require(r.Context(), staff...)
	}
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	var it content.Item
	if err := httpx.Decode(r, &it); err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	created, err := s.svc.Create(r.Context(), kind, &it)
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (s *Server) Update(w http.ResponseWriter, r *http.Request, params map[string]string) {
	kind, id, err := kindAndID(params)
	if err == nil {
		_, err = gwauth.Require(r.Context(), staff...)
	}
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	var p content.Patch
	if err := httpx.Decode(r, &p); err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	it, err := s.svc.Update(r.Context(), kind, id, p)
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, it)
}

func (s *Server) Delete(w http.ResponseWriter, r *http.Request, params map[string]string) {
	kind, id, err := kindAndID(params)
	if err == nil {
		_, err = gwauth.Require(r.Context(), staff...)
	}
	if err == nil {
		err = s.svc.Delete(r.Context(), kind, id)
	}
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) Publish(w http.ResponseWriter, r *http.Request, params map[string]string) {
	kind, id, err := kindAndID(params)
	if err == nil {
		_, err = gwauth.Require(r.Context(), staff...)
	}
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	it, err := s.svc.Publish(r.Context(), kind, id)
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, it)
}

func (s *Server) Stats(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if _, err := gwauth.Require(r.Context(), staff...); err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s.svc.Stats(r.Context()))
}
