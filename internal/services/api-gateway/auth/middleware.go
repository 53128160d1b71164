package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/NordCoder/EduPortal/internal/auth"
	domainauth "github.com/NordCoder/EduPortal/internal/domain/auth"
)

// Middleware attaches the caller identity when a valid bearer token is
// present. Requests without one pass through anonymous; handlers decide.
func Middleware(parse func(token string) (domainauth.Identity, error), log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerHeader(r.Header.Get("Authorization"))
			if token == "" {
				token = r.URL.Query().Get("access_token")
			}
			if token != "" {
				id, err := parse(token)
				if err != nil {
					log.Debug("bearer rejected", zap.Error(err))
				} else {
					r = r.WithContext(auth.WithIdentity(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerHeader(v string) string {
	if strings.HasPrefix(strings.ToLower(v), "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return strings.TrimSpace(v)
}
