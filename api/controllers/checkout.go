package controllers

import (
	"net/http"

	"github.com/saudamarket/storefront-backend/api/responses"
	"github.com/saudamarket/storefront-backend/api/validators"
	cartsvc "github.com/saudamarket/storefront-backend/internal/cart"
	ordersvc "github.com/saudamarket/storefront-backend/internal/orders"
	"github.com/saudamarket/storefront-backend/internal/payments"
	pkgerrors "github.com/saudamarket/storefront-backend/pkg/errors"
	"github.com/saudamarket/storefront-backend/pkg/logger"
	"github.com/saudamarket/storefront-backend/pkg/metrics"
)

// Checkout converts the caller's cart into an order and hands back the signed
// payment redirect URL.
func Checkout(
	carts cartsvc.Service,
	orders ordersvc.Service,
	links *payments.LinkBuilder,
	m *metrics.PaymentMetrics,
	logg *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if carts == nil || orders == nil || links == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity, err := callerIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := carts.GetOrCreate(r.Context(), identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := orders.PlaceOrder(r.Context(), ordersvc.PlaceOrderInput{
			CartID: cart.ID,
			Customer: ordersvc.CustomerInfo{
				UserID:          identity.UserID,
				Name:            payload.Name,
				Phone:           payload.Phone,
				Email:           payload.Email,
				DeliveryAddress: payload.DeliveryAddress,
				Comment:         payload.Comment,
			},
			Promocode: payload.Promocode,
		})
		if err != nil {
			m.ObserveCheckout("failed")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentURL, err := links.PaymentLink(order)
		if err != nil {
			// The order is placed; a broken link must not look like a failed
			// checkout to the customer.
			m.ObserveCheckout("link_failed")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		m.ObserveCheckout("placed")
		if logg != nil {
			logg.Info(logg.WithOrderNumber(r.Context(), order.OrderNumber), "checkout.placed")
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			Order:      newOrderResponse(order),
			PaymentURL: paymentURL,
		})
	}
}

type checkoutRequest struct {
	Name            string  `json:"name" validate:"required,min=1,max=200"`
	Phone           string  `json:"phone" validate:"required,min=5,max=32"`
	Email           *string `json:"email" validate:"omitempty,email"`
	DeliveryAddress *string `json:"delivery_address" validate:"omitempty,max=500"`
	Comment         *string `json:"comment" validate:"omitempty,max=1000"`
	Promocode       *string `json:"promocode" validate:"omitempty,min=1,max=64"`
}

type checkoutResponse struct {
	Order      orderResponse `json:"order"`
	PaymentURL string        `json:"payment_url"`
}
