package notification

import (
	"context"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/domain"
	domainnotif "github.com/NordCoder/EduPortal/internal/domain/notification"
	"github.com/NordCoder/EduPortal/internal/domain/profile"
	"github.com/NordCoder/EduPortal/internal/services/api-gateway/auth"
	"github.com/NordCoder/EduPortal/internal/services/api-gateway/httpx"
	"github.com/NordCoder/EduPortal/internal/transport/sms"
)

const maxBulk = 500

type Service interface {
	List(ctx context.Context, recipientID int64, limit, offset int) []*domainnotif.Notification
	MarkRead(ctx context.Context, recipientID, id int64) bool
	MarkAllRead(ctx context.Context, recipientID int64) int64
	UnreadCount(ctx context.Context, recipientID int64) int
	SendBulk(ctx context.Context, msgs []domainnotif.Message) domainnotif.BulkResult
}

type SMSBulk interface {
	SendBulk(ctx context.Context, msgs []sms.Outgoing) []domainnotif.Delivery
}

type Validator interface {
	Struct(s any) error
}

type Server struct {
	log      *zap.Logger
	svc      Service
	sms      SMSBulk
	validate Validator
}

func NewServer(log *zap.Logger, svc Service, smsBulk SMSBulk, validate Validator) *Server {
	return &Server{log: log.With(zap.String("component", "api.notification")), svc: svc, sms: smsBulk, validate: validate}
}

func (s *Server) Register(mux *runtime.ServeMux) error {
	routes := []struct {
		method, path string
		h            runtime.HandlerFunc
	}{
		{http.MethodGet, "/v1/notifications", s.List},
		{http.MethodGet, "/v1/notifications/unread-count", s.UnreadCount},
		{http.MethodPost, "/v1/notifications/read-all", s.MarkAllRead},
		{http.MethodPost, "/v1/notifications/bulk", s.SendBulk},
		{http.MethodPost, "/v1/notifications/{id}/read", s.MarkRead},
		{http.MethodPost, "/v1/sms/bulk", s.SMSBulk},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.path, rt.h); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) List(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	id, err := auth.Require(r.Context())
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	limit, offset := httpx.Window(r)
	items := s.svc.List(r.Context(), id.ID, limit, offset)
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) UnreadCount(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	id, err := auth.Require(r.Context())
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"unread": s.svc.UnreadCount(r.Context(), id.ID)})
}

func (s *Server) MarkRead(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := auth.Require(r.Context())
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	nid, err := httpx.Int64Param("id", params["id"])
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"updated": s.svc.MarkRead(r.Context(), id.ID, nid)})
}

func (s *Server) MarkAllRead(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	id, err := auth.Require(r.Context())
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"updated": s.svc.MarkAllRead(r.Context(), id.ID)})
}

type bulkRequest struct {
	Messages []domainnotif.Message `json:"messages"`
}

func (s *Server) SendBulk(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if _, err := auth.Require(r.Context(), profile.RoleAdmin); err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	var req bulkRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	if len(req.Messages) == 0 || len(req.Messages) > maxBulk {
		httpx.Error(w, s.log, domain.Invalid("messages", "between 1 and 500 messages are required"))
		return
	}
	httpx.JSON(w, http.StatusOK, s.svc.SendBulk(r.Context(), req.Messages))
}

type smsBulkRequest struct {
	Messages []sms.Outgoing `json:"messages" validate:"required,min=1,max=500,dive"`
}

func (s *Server) SMSBulk(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if _, err := auth.Require(r.Context(), profile.RoleAdmin); err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	var req smsBulkRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	results := s.sms.SendBulk(r.Context(), req.Messages)
	sent := 0
	for _, d := range results {
		if d.Success {
			sent++
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"results": results,
		"summary": domainnotif.BulkResult{Success: sent, Failed: len(results) - sent, Total: len(results)},
	})
}
