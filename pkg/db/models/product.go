package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the canonical catalog listing. The pricing core reads it and the
// order assembler decrements its quantity; everything else about catalog
// management belongs to the admin collaborator.
type Product struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string           `gorm:"column:name;not null"`
	SKU            string           `gorm:"column:sku;not null"`
	Price          decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	PromotionPrice *decimal.Decimal `gorm:"column:promotion_price;type:numeric(12,2)"`
	DiscountPrice  *decimal.Decimal `gorm:"column:discount_price;type:numeric(12,2)"`
	HasPromotion   bool             `gorm:"column:has_promotion;not null;default:false"`
	IsDiscount     bool             `gorm:"column:is_discount;not null;default:false"`
	AllowPromocode bool             `gorm:"column:allow_promocode;not null;default:true"`
	Quantity       int              `gorm:"column:quantity;not null;default:0"`
	IsActive       bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
