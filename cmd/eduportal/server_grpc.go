package main

import (
	"net"

	grpcprometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	config "github.com/NordCoder/EduPortal/internal/config/eduportal"
	"github.com/NordCoder/EduPortal/internal/obs"
	authapi "github.com/NordCoder/EduPortal/internal/services/api-gateway/auth"
)

func buildGRPCServer(cfg *config.Config, a *app) (*grpc.Server, *health.Server, net.Listener, error) {
	opts := obs.GRPCServerOpts()
	opts = append(opts, grpc.ChainUnaryInterceptor(authapi.UnaryAuthInterceptor(a.authUC.ParseAccess)))

	grpcServer := grpc.NewServer(opts...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	reflection.Register(grpcServer)
	grpcprometheus.Register(grpcServer)

	ln, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return nil, nil, nil, err
	}
	return grpcServer, hs, ln, nil
}

func serveGRPC(s *grpc.Server, ln net.Listener, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("grpc listening", zap.String("addr", cfg.Server.GRPCAddr))
	return s.Serve(ln)
}
