package promocodes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/saudamarket/storefront-backend/pkg/db/models"
)

// Repository exposes promocode reads plus the atomic usage increment applied
// during order placement.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a promocode repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByCode loads a promocode by its code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Promocode, error) {
	var promo models.Promocode
	if err := r.db.WithContext(ctx).First(&promo, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

// IncrementUsage bumps the usage counter, guarded so the cap can never be
// exceeded by concurrent placements. Returns false when the cap is exhausted.
func (r *Repository) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Promocode{}).
		Where("id = ? AND (max_uses = 0 OR used_count < max_uses)", id).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
