package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/saudamarket/storefront-backend/api/middleware"
	"github.com/saudamarket/storefront-backend/api/responses"
	"github.com/saudamarket/storefront-backend/api/validators"
	ordersvc "github.com/saudamarket/storefront-backend/internal/orders"
	"github.com/saudamarket/storefront-backend/pkg/db/models"
	"github.com/saudamarket/storefront-backend/pkg/enums"
	pkgerrors "github.com/saudamarket/storefront-backend/pkg/errors"
	"github.com/saudamarket/storefront-backend/pkg/logger"
)

const defaultOrderListLimit = 50

// OrdersList returns the authenticated user's order history.
func OrdersList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
			return
		}

		limit := defaultOrderListLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			limit = parsed
		}

		rows, err := svc.ListByUser(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]orderResponse, 0, len(rows))
		for i := range rows {
			views = append(views, newOrderResponse(&rows[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

// OrderGet loads an order by its external number. The number is an
// unguessable reference, which is what lets anonymous buyers check their
// order after checkout.
func OrderGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		order, err := svc.GetByNumber(r.Context(), chi.URLParam(r, "orderNumber"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderAdvanceStatus moves an order's fulfillment status.
func OrderAdvanceStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var payload advanceStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AdvanceStatus(r.Context(), chi.URLParam(r, "orderNumber"), enums.OrderStatus(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type advanceStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type orderResponse struct {
	OrderNumber       string              `json:"order_number"`
	Status            enums.OrderStatus   `json:"status"`
	PaymentStatus     enums.PaymentStatus `json:"payment_status"`
	CustomerName      string              `json:"customer_name"`
	CustomerPhone     string              `json:"customer_phone"`
	CustomerEmail     *string             `json:"customer_email,omitempty"`
	DeliveryAddress   *string             `json:"delivery_address,omitempty"`
	Comment           *string             `json:"comment,omitempty"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	Discount          decimal.Decimal     `json:"discount"`
	PromocodeDiscount decimal.Decimal     `json:"promocode_discount"`
	Total             decimal.Decimal     `json:"total"`
	PaidAt            *time.Time          `json:"paid_at,omitempty"`
	Items             []orderItemResponse `json:"items"`
	CreatedAt         time.Time           `json:"created_at"`
}

type orderItemResponse struct {
	ProductID    *uuid.UUID      `json:"product_id,omitempty"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	AppliedPrice decimal.Decimal `json:"applied_price"`
	Quantity     int             `json:"quantity"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID:    item.ProductID,
			Name:         item.Name,
			Price:        item.Price,
			AppliedPrice: item.AppliedPrice,
			Quantity:     item.Quantity,
		})
	}
	return orderResponse{
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		PaymentStatus:     order.PaymentStatus,
		CustomerName:      order.CustomerName,
		CustomerPhone:     order.CustomerPhone,
		CustomerEmail:     order.CustomerEmail,
		DeliveryAddress:   order.DeliveryAddress,
		Comment:           order.Comment,
		Subtotal:          order.Subtotal,
		Discount:          order.Discount,
		PromocodeDiscount: order.PromocodeDiscount,
		Total:             order.Total,
		PaidAt:            order.PaidAt,
		Items:             items,
		CreatedAt:         order.CreatedAt,
	}
}
