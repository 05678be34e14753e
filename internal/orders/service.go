package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/saudamarket/storefront-backend/internal/cart"
	"github.com/saudamarket/storefront-backend/internal/notifications"
	"github.com/saudamarket/storefront-backend/internal/pricing"
	"github.com/saudamarket/storefront-backend/internal/products"
	"github.com/saudamarket/storefront-backend/internal/promocodes"
	"github.com/saudamarket/storefront-backend/pkg/db/models"
	"github.com/saudamarket/storefront-backend/pkg/enums"
	pkgerrors "github.com/saudamarket/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// statusTransitions is the closed fulfillment state machine. Delivered and
// cancelled are terminal.
var statusTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusNew:        {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered},
}

// Service exposes checkout and order read operations.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error)
	AdvanceStatus(ctx context.Context, orderNumber string, to enums.OrderStatus) (*models.Order, error)
}

type service struct {
	repo     OrderRepository
	tx       txRunner
	carts    cart.CartRepository
	products *products.Repository
	promos   *promocodes.Repository
	notifier notifications.Notifier
}

// NewService builds the order service backed by the provided stack.
func NewService(
	repo OrderRepository,
	tx txRunner,
	carts cart.CartRepository,
	productRepo *products.Repository,
	promoRepo *promocodes.Repository,
	notifier notifications.Notifier,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if promoRepo == nil {
		return nil, fmt.Errorf("promocode repository required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		carts:    carts,
		products: productRepo,
		promos:   promoRepo,
		notifier: notifier,
	}, nil
}

// PlaceOrder converts the cart into an immutable order. Everything runs in
// one transaction: stock re-validation and decrement, promocode usage, the
// order insert and the cart teardown commit together or not at all.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if input.CartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	if input.Customer.Name == "" || input.Customer.Phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name and phone are required")
	}

	var placed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		productRepo := s.products.WithTx(tx)
		promoRepo := s.promos.WithTx(tx)

		loaded, err := cartRepo.FindByID(ctx, input.CartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return err
		}
		if len(loaded.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		// Stable order keeps concurrent checkouts from deadlocking on the
		// product rows they both touch.
		items := make([]models.CartItem, len(loaded.Items))
		copy(items, loaded.Items)
		sort.Slice(items, func(i, j int) bool {
			return items[i].ProductID.String() < items[j].ProductID.String()
		})

		lines := make([]pricing.Line, 0, len(items))
		orderItems := make([]models.OrderItem, 0, len(items))
		for i := range items {
			item := &items[i]

			product, err := productRepo.FindByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeValidation,
						fmt.Sprintf("product in cart no longer exists (item %s)", item.ID))
				}
				return err
			}
			if !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("%q is no longer available", product.Name))
			}
			if item.Quantity > product.Quantity {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("insufficient stock for %q", product.Name)).
					WithDetails(map[string]any{"product_id": product.ID, "available": product.Quantity})
			}

			// Totals are recomputed from live catalog state; nothing the
			// client sent is trusted.
			applied := pricing.AppliedPrice(*product)
			lines = append(lines, pricing.Line{
				Price:        product.Price,
				AppliedPrice: applied,
				Quantity:     item.Quantity,
			})
			productID := product.ID
			orderItems = append(orderItems, models.OrderItem{
				ProductID:    &productID,
				Name:         product.Name,
				Price:        product.Price,
				AppliedPrice: applied,
				Quantity:     item.Quantity,
			})

			taken, err := productRepo.DecrementStock(ctx, product.ID, item.Quantity)
			if err != nil {
				return err
			}
			if !taken {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("insufficient stock for %q", product.Name))
			}
		}

		var promo *models.Promocode
		if input.Promocode != nil && *input.Promocode != "" {
			promo, err = promoRepo.FindByCode(ctx, *input.Promocode)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "promocode not found")
				}
				return err
			}
			subtotal := pricing.ComputeTotals(lines, nil).Subtotal
			if err := promocodes.Validate(promo, time.Now(), subtotal); err != nil {
				return err
			}
			used, err := promoRepo.IncrementUsage(ctx, promo.ID)
			if err != nil {
				return err
			}
			if !used {
				return pkgerrors.New(pkgerrors.CodeValidation, "promocode usage limit reached")
			}
		}

		totals := pricing.ComputeTotals(lines, promo)

		order := &models.Order{
			ID:                uuid.New(),
			OrderNumber:       NewOrderNumber(),
			UserID:            input.Customer.UserID,
			CustomerName:      input.Customer.Name,
			CustomerPhone:     input.Customer.Phone,
			CustomerEmail:     input.Customer.Email,
			DeliveryAddress:   input.Customer.DeliveryAddress,
			Comment:           input.Customer.Comment,
			Subtotal:          totals.Subtotal,
			Discount:          totals.Discount,
			PromocodeDiscount: totals.PromocodeDiscount,
			Total:             totals.Total,
			PaymentStatus:     enums.PaymentStatusPending,
			Status:            enums.OrderStatusNew,
			Items:             orderItems,
		}
		if promo != nil {
			promoID := promo.ID
			order.PromocodeID = &promoID
		}

		placed, err = s.repo.WithTx(tx).Create(ctx, order)
		if err != nil {
			return err
		}

		return cartRepo.Delete(ctx, loaded.ID)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place order")
	}

	s.notifier.NotifyOrderPlaced(ctx, placed)
	return placed, nil
}

// GetByNumber loads an order by its external reference.
func (s *service) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// ListByUser returns the user's order history.
func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

// AdvanceStatus moves fulfillment state along the closed transition set.
func (s *service) AdvanceStatus(ctx context.Context, orderNumber string, to enums.OrderStatus) (*models.Order, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", to))
	}

	order, err := s.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(order.Status, to) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %q to %q", order.Status, to))
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).UpdateStatus(ctx, orderNumber, order.Status, to)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		// Cancellation releases the stock the order reserved at placement.
		if to == enums.OrderStatusCancelled {
			productRepo := s.products.WithTx(tx)
			for _, item := range order.Items {
				if item.ProductID == nil {
					continue
				}
				if err := productRepo.Restock(ctx, *item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	order.Status = to
	return order, nil
}

func transitionAllowed(from, to enums.OrderStatus) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
