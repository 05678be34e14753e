package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/saudamarket/storefront-backend/api/responses"
	"github.com/saudamarket/storefront-backend/api/validators"
	cartsvc "github.com/saudamarket/storefront-backend/internal/cart"
	"github.com/saudamarket/storefront-backend/internal/pricing"
	"github.com/saudamarket/storefront-backend/pkg/db/models"
	pkgerrors "github.com/saudamarket/storefront-backend/pkg/errors"
	"github.com/saudamarket/storefront-backend/pkg/logger"
)

// CartGet resolves the caller's cart, creating one on first contact, and
// returns it priced. An optional ?promocode= previews the code's effect
// without reserving anything.
func CartGet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		identity, err := callerIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.GetOrCreate(r.Context(), identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var promocode *string
		if code := r.URL.Query().Get("promocode"); code != "" {
			promocode = &code
		}

		quote, err := svc.GetQuote(r.Context(), cart.ID, promocode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newQuoteResponse(quote))
	}
}

// CartAddItem adds a product line to the caller's cart.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := resolveCart(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.AddItem(r.Context(), cart.ID, payload.ProductID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(updated))
	}
}

// CartUpdateItem sets a cart line's quantity.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		itemID, err := pathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := resolveCart(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateItem(r.Context(), cart.ID, itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(updated))
	}
}

// CartRemoveItem deletes a cart line.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		itemID, err := pathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := resolveCart(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.RemoveItem(r.Context(), cart.ID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(updated))
	}
}

// CartClear empties the caller's cart.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		cart, err := resolveCart(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Clear(r.Context(), cart.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart.Items = nil
		responses.WriteSuccess(w, newCartResponse(cart))
	}
}

func resolveCart(r *http.Request, svc cartsvc.Service) (*models.Cart, error) {
	identity, err := callerIdentity(r.Context())
	if err != nil {
		return nil, err
	}
	return svc.GetOrCreate(r.Context(), identity)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return parsed, nil
}

type addCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type cartResponse struct {
	ID           uuid.UUID          `json:"id"`
	UserID       *uuid.UUID         `json:"user_id,omitempty"`
	SessionToken *string            `json:"session_token,omitempty"`
	ExpiresAt    *time.Time         `json:"expires_at,omitempty"`
	Items        []cartItemResponse `json:"items"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type cartItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      uuid.UUID       `json:"product_id"`
	Quantity       int             `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	AppliedPrice   decimal.Decimal `json:"applied_price"`
	HasPromotion   bool            `json:"has_promotion"`
	AllowPromocode bool            `json:"allow_promocode"`
}

type quoteResponse struct {
	Cart      cartResponse   `json:"cart"`
	Totals    pricing.Totals `json:"totals"`
	Promocode *string        `json:"promocode,omitempty"`
}

func newCartResponse(cart *models.Cart) cartResponse {
	items := make([]cartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			Price:          item.Price,
			AppliedPrice:   item.AppliedPrice,
			HasPromotion:   item.HasPromotion,
			AllowPromocode: item.AllowPromocode,
		})
	}
	return cartResponse{
		ID:           cart.ID,
		UserID:       cart.UserID,
		SessionToken: cart.SessionToken,
		ExpiresAt:    cart.ExpiresAt,
		Items:        items,
		UpdatedAt:    cart.UpdatedAt,
	}
}

func newQuoteResponse(quote *cartsvc.Quote) quoteResponse {
	resp := quoteResponse{
		Cart:   newCartResponse(quote.Cart),
		Totals: quote.Totals,
	}
	if quote.Promocode != nil {
		code := quote.Promocode.Code
		resp.Promocode = &code
	}
	return resp
}
