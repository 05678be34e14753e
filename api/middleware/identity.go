package middleware

import (
	"net/http"
	"strings"

	"github.com/saudamarket/storefront-backend/api/responses"
	pkgauth "github.com/saudamarket/storefront-backend/pkg/auth"
	"github.com/saudamarket/storefront-backend/pkg/config"
	pkgerrors "github.com/saudamarket/storefront-backend/pkg/errors"
	"github.com/saudamarket/storefront-backend/pkg/logger"
)

const sessionTokenHeader = "X-Cart-Session"

// Identity resolves the caller from the Authorization header when present and
// the anonymous cart session header otherwise. Anonymous requests pass
// through; an invalid bearer token is rejected rather than silently
// downgraded to anonymous.
func Identity(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if token := bearerToken(r); token != "" {
				userID, err := pkgauth.ParseUserID(cfg, token)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token"))
					return
				}
				ctx = WithUserID(ctx, userID.String())
				if logg != nil {
					ctx = logg.WithUserID(ctx, userID.String())
				}
			}

			if session := strings.TrimSpace(r.Header.Get(sessionTokenHeader)); session != "" {
				ctx = WithSessionToken(ctx, session)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth gates routes that only make sense for an authenticated user.
func RequireAuth(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
