package profile

import (
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/domain/profile"
	"github.com/NordCoder/EduPortal/internal/services/api-gateway/auth"
	"github.com/NordCoder/EduPortal/internal/services/api-gateway/httpx"
)

type Server struct {
	log *zap.Logger
	uc  *Usecase
}

func NewServer(log *zap.Logger, uc *Usecase) *Server {
	return &Server{log: log.With(zap.String("component", "api.profile")), uc: uc}
}

func (s *Server) Register(mux *runtime.ServeMux) error {
	return mux.HandlePath(http.MethodPost, "/v1/profiles", s.Create)
}

func (s *Server) Create(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if _, err := auth.Require(r.Context(), profile.RoleAdmin); err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	var in profile.NewProfile
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	p, err := s.uc.Create(r.Context(), in)
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}
