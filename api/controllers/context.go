package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/saudamarket/storefront-backend/api/middleware"
	cartsvc "github.com/saudamarket/storefront-backend/internal/cart"
	pkgerrors "github.com/saudamarket/storefront-backend/pkg/errors"
)

func newTimeoutContext(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), timeout)
}

// callerIdentity builds a cart identity from the request context. Either side
// may be present; GetOrCreate enforces that at least one is.
func callerIdentity(ctx context.Context) (cartsvc.Identity, error) {
	identity := cartsvc.Identity{}

	if raw := middleware.UserIDFromContext(ctx); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return identity, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
		}
		identity.UserID = &userID
	}
	if token := middleware.SessionTokenFromContext(ctx); token != "" {
		identity.SessionToken = &token
	}

	if identity.UserID == nil && identity.SessionToken == nil {
		// A brand-new anonymous visitor has neither; the cart service mints a
		// session token when it creates the cart.
		empty := ""
		identity.SessionToken = &empty
	}
	return identity, nil
}
