package webhooks

import (
	"context"
	"net/http"

	"github.com/saudamarket/storefront-backend/api/responses"
	paymentwebhook "github.com/saudamarket/storefront-backend/internal/webhooks/payment"
	pkgerrors "github.com/saudamarket/storefront-backend/pkg/errors"
	"github.com/saudamarket/storefront-backend/pkg/logger"
)

// PaymentWebhookService processes a verified payment notification.
type PaymentWebhookService interface {
	HandleNotification(ctx context.Context, params map[string]string) (paymentwebhook.Outcome, error)
}

// PaymentWebhook receives gateway payment notifications. The gateway posts
// form-encoded key/value pairs with an HMAC sign field; verification and
// deduplication live in the webhook service, this handler only maps the
// outcome onto an HTTP status the gateway understands.
func PaymentWebhook(svc PaymentWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		if err := r.ParseForm(); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse notification body"))
			return
		}

		params := make(map[string]string, len(r.PostForm))
		for key, values := range r.PostForm {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}
		// Some gateways deliver callbacks as GET with query parameters.
		for key, values := range r.URL.Query() {
			if _, exists := params[key]; !exists && len(values) > 0 {
				params[key] = values[0]
			}
		}

		outcome, err := svc.HandleNotification(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"outcome": string(outcome)})
	}
}
