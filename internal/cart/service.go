package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/saudamarket/storefront-backend/internal/pricing"
	"github.com/saudamarket/storefront-backend/internal/promocodes"
	"github.com/saudamarket/storefront-backend/pkg/db"
	"github.com/saudamarket/storefront-backend/pkg/db/models"
	pkgerrors "github.com/saudamarket/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type promoLoader interface {
	FindByCode(ctx context.Context, code string) (*models.Promocode, error)
}

// Identity names the owner of a cart: a user id once logged in, a session
// token before that. At least one must be present.
type Identity struct {
	UserID       *uuid.UUID
	SessionToken *string
}

// Quote is a priced view of a cart, optionally under a promocode.
type Quote struct {
	Cart      *models.Cart
	Totals    pricing.Totals
	Promocode *models.Promocode
}

// Service exposes cart aggregate operations.
type Service interface {
	GetOrCreate(ctx context.Context, identity Identity) (*models.Cart, error)
	AddItem(ctx context.Context, cartID, productID uuid.UUID, qty int) (*models.Cart, error)
	UpdateItem(ctx context.Context, cartID, itemID uuid.UUID, qty int) (*models.Cart, error)
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, cartID uuid.UUID) error
	GetQuote(ctx context.Context, cartID uuid.UUID, promocode *string) (*Quote, error)
}

type service struct {
	repo         CartRepository
	tx           txRunner
	products     productLoader
	promos       promoLoader
	anonymousTTL time.Duration
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, products productLoader, promos promoLoader, anonymousTTL time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if promos == nil {
		return nil, fmt.Errorf("promocode loader required")
	}
	return &service{
		repo:         repo,
		tx:           tx,
		products:     products,
		promos:       promos,
		anonymousTTL: anonymousTTL,
	}, nil
}

// GetOrCreate resolves the caller's live cart, creating one when none exists.
// Lookup order is user id first, then session token. A session cart found
// during a logged-in lookup is re-owned in place, which is how the anonymous
// cart survives login with its items intact.
func (s *service) GetOrCreate(ctx context.Context, identity Identity) (*models.Cart, error) {
	if identity.UserID == nil && identity.SessionToken == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart identity is required")
	}

	if identity.UserID != nil {
		return s.getOrCreateForUser(ctx, *identity.UserID, identity.SessionToken)
	}
	return s.getOrCreateForSession(ctx, *identity.SessionToken)
}

func (s *service) getOrCreateForUser(ctx context.Context, userID uuid.UUID, sessionToken *string) (*models.Cart, error) {
	userCart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user cart")
	}

	var sessionCart *models.Cart
	if sessionToken != nil && *sessionToken != "" {
		sessionCart, err = s.repo.FindBySessionToken(ctx, *sessionToken)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session cart")
		}
		if cartExpired(sessionCart) {
			sessionCart = nil
		}
	}

	if userCart != nil {
		if sessionCart == nil || sessionCart.UserID != nil || len(sessionCart.Items) == 0 {
			return userCart, nil
		}
		// Re-owning would give the user a second cart; the caller decides
		// which cart wins and discards the other.
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already has a cart; discard the session cart to continue")
	}

	if sessionCart != nil && sessionCart.IsAnonymous() {
		owned, err := s.repo.AssignUser(ctx, sessionCart.ID, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "re-own session cart")
		}
		if !owned {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "session cart was claimed concurrently")
		}
		sessionCart.UserID = &userID
		return sessionCart, nil
	}

	created, err := s.repo.Create(ctx, &models.Cart{UserID: &userID})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user cart was created concurrently")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user cart")
	}
	return created, nil
}

func (s *service) getOrCreateForSession(ctx context.Context, sessionToken string) (*models.Cart, error) {
	if sessionToken != "" {
		cart, err := s.repo.FindBySessionToken(ctx, sessionToken)
		if err == nil {
			if !cartExpired(cart) {
				return cart, nil
			}
			// Expired anonymous cart: retire it and start over.
			if err := s.repo.Delete(ctx, cart.ID); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retire expired cart")
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session cart")
		}
	}

	token := uuid.NewString()
	expires := time.Now().Add(s.anonymousTTL)
	created, err := s.repo.Create(ctx, &models.Cart{SessionToken: &token, ExpiresAt: &expires})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session cart")
	}
	return created, nil
}

// AddItem adds qty units of the product to the cart, folding into an existing
// line when the product is already present. The applied price is recomputed on
// every add so live carts always carry current promotions.
func (s *service) AddItem(ctx context.Context, cartID, productID uuid.UUID, qty int) (*models.Cart, error) {
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.loadSellableProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if _, err := txRepo.FindByID(ctx, cartID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return err
		}

		item, err := txRepo.FindItem(ctx, cartID, productID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		newQty := qty
		if item != nil {
			newQty = item.Quantity + qty
		}
		if newQty > product.Quantity {
			return insufficientStock(product)
		}

		applied := pricing.AppliedPrice(*product)
		if item != nil {
			item.Quantity = newQty
			item.Price = product.Price
			item.AppliedPrice = applied
			item.HasPromotion = product.HasPromotion
			item.AllowPromocode = product.AllowPromocode
			return txRepo.UpdateItem(ctx, item)
		}

		err = txRepo.CreateItem(ctx, &models.CartItem{
			CartID:         cartID,
			ProductID:      product.ID,
			Quantity:       newQty,
			Price:          product.Price,
			AppliedPrice:   applied,
			HasPromotion:   product.HasPromotion,
			AllowPromocode: product.AllowPromocode,
		})
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart line was added concurrently")
		}
		return err
	}); err != nil {
		return nil, asCartError(err, "add cart item")
	}

	return s.reload(ctx, cartID)
}

// UpdateItem sets a cart line's quantity, re-checking live stock and
// refreshing the applied price.
func (s *service) UpdateItem(ctx context.Context, cartID, itemID uuid.UUID, qty int) (*models.Cart, error) {
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		item, err := txRepo.FindItemByID(ctx, cartID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return err
		}

		product, err := s.loadSellableProduct(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if qty > product.Quantity {
			return insufficientStock(product)
		}

		item.Quantity = qty
		item.Price = product.Price
		item.AppliedPrice = pricing.AppliedPrice(*product)
		item.HasPromotion = product.HasPromotion
		item.AllowPromocode = product.AllowPromocode
		return txRepo.UpdateItem(ctx, item)
	}); err != nil {
		return nil, asCartError(err, "update cart item")
	}

	return s.reload(ctx, cartID)
}

// RemoveItem deletes a cart line.
func (s *service) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.Cart, error) {
	removed, err := s.repo.DeleteItem(ctx, cartID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	if !removed {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.reload(ctx, cartID)
}

// Clear empties the cart without deleting the cart row.
func (s *service) Clear(ctx context.Context, cartID uuid.UUID) error {
	if _, err := s.reload(ctx, cartID); err != nil {
		return err
	}
	if err := s.repo.DeleteItems(ctx, cartID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// GetQuote prices the cart, applying and validating the promocode when one is
// supplied. Pure read; nothing is reserved or written.
func (s *service) GetQuote(ctx context.Context, cartID uuid.UUID, promocode *string) (*Quote, error) {
	cart, err := s.reload(ctx, cartID)
	if err != nil {
		return nil, err
	}

	lines := pricing.LinesFromCartItems(cart.Items)

	var promo *models.Promocode
	if promocode != nil && *promocode != "" {
		promo, err = s.promos.FindByCode(ctx, *promocode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promocode not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promocode")
		}
		subtotal := pricing.ComputeTotals(lines, nil).Subtotal
		if err := promocodes.Validate(promo, time.Now(), subtotal); err != nil {
			return nil, err
		}
	}

	return &Quote{
		Cart:      cart,
		Totals:    pricing.ComputeTotals(lines, promo),
		Promocode: promo,
	}, nil
}

func (s *service) loadSellableProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product is not available")
	}
	return product, nil
}

func (s *service) reload(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func cartExpired(cart *models.Cart) bool {
	return cart != nil && cart.ExpiresAt != nil && cart.ExpiresAt.Before(time.Now())
}

func insufficientStock(product *models.Product) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("insufficient stock for %q", product.Name)).
		WithDetails(map[string]any{"product_id": product.ID, "available": product.Quantity})
}

// asCartError keeps typed errors intact and wraps raw store failures.
func asCartError(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
