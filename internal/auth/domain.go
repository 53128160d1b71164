package auth

import (
	"context"

	domainauth "github.com/NordCoder/EduPortal/internal/domain/auth"
)

type ctxKey int

const identityKey ctxKey = 1

func WithIdentity(ctx context.Context, id domainauth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromCtx(ctx context.Context) (domainauth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(domainauth.Identity)
	return id, ok
}

// CtxIdentities reads the author id placed in the context by the HTTP middleware.
type CtxIdentities struct{}

func (CtxIdentities) Current(ctx context.Context) (int64, bool) {
	id, ok := IdentityFromCtx(ctx)
	if !ok || id.ID <= 0 {
		return 0, false
	}
	return id.ID, true
}
