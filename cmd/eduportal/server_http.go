package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"

	config "github.com/NordCoder/EduPortal/internal/config/eduportal"
	"github.com/NordCoder/EduPortal/internal/obs"
	authapi "github.com/NordCoder/EduPortal/internal/services/api-gateway/auth"
)

type registrar interface {
	Register(mux *runtime.ServeMux) error
}

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, a *app) (*http.Server, error) {
	mux := runtime.NewServeMux()
	for _, r := range a.routes {
		if err := r.Register(mux); err != nil {
			return nil, err
		}
	}

	root := chi.NewRouter()
	root.Use(middleware.RequestID)
	root.Use(middleware.RealIP)
	root.Use(middleware.Recoverer)
	root.Use(authapi.Middleware(a.authUC.ParseAccess, logger))
	root.Handle("/*", mux)

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           obs.HTTPHandler(root, "eduportal.http"),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}, nil
}

func serveHTTP(srv *http.Server, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}
