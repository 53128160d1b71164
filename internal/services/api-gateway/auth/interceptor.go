package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/NordCoder/EduPortal/internal/auth"
	domainauth "github.com/NordCoder/EduPortal/internal/domain/auth"
)

var publicFullMethods = map[string]bool{
	"/grpc.health.v1.Health/Check": true,
	"/grpc.health.v1.Health/Watch": true,
	"/grpc.health.v1.Health/List":  true,
}

func UnaryAuthInterceptor(parse func(token string) (domainauth.Identity, error)) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (interface{}, error) {
		if publicFullMethods[info.FullMethod] {
			return next(ctx, req)
		}

		token := bearer(ctx)
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		id, err := parse(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		return next(auth.WithIdentity(ctx, id), req)
	}
}

func bearer(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("authorization"); len(vals) > 0 {
			return bearerHeader(vals[0])
		}
	}
	return ""
}
