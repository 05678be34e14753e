package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/saudamarket/storefront-backend/pkg/db/models"
	"github.com/saudamarket/storefront-backend/pkg/enums"
)

// OrderRepository defines the persistence surface for the order snapshot.
// MarkPaid and MarkFailed are conditional updates: the boolean result is the
// "did I do the work" signal the payment reconciler keys its idempotency on.
type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error)
	MarkPaid(ctx context.Context, orderNumber string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, orderNumber string) (bool, error)
	UpdateStatus(ctx context.Context, orderNumber string, from, to enums.OrderStatus) (bool, error)
}
