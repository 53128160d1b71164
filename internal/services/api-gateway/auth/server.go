package auth

import (
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/domain"
	"github.com/NordCoder/EduPortal/internal/domain/profile"
	"github.com/NordCoder/EduPortal/internal/services/api-gateway/httpx"
)

type Server struct {
	log      *zap.Logger
	uc       *Usecase
	profiles profile.Repo
}

func NewServer(uc *Usecase, profiles profile.Repo, log *zap.Logger) *Server {
	return &Server{log: log.With(zap.String("component", "api.auth")), uc: uc, profiles: profiles}
}

func (s *Server) Register(mux *runtime.ServeMux) error {
	if err := mux.HandlePath(http.MethodPost, "/v1/auth/signin", s.SignIn); err != nil {
		return err
	}
	return mux.HandlePath(http.MethodGet, "/v1/me", s.Me)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	AccessToken string           `json:"access_token"`
	Profile     *profile.Profile `json:"profile"`
}

func (s *Server) SignIn(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req signInRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.Error(w, s.log, domain.Invalid("email", "email and password are required"))
		return
	}

	s.log.Info("auth.signin", zap.String("email", NormalizeEmail(req.Email)))

	p, token, err := s.uc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, signInResponse{AccessToken: token, Profile: p})
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	id, err := Require(r.Context())
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	p, err := s.profiles.GetByID(r.Context(), id.ID)
	if err != nil {
		httpx.Error(w, s.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
