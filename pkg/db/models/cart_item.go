package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is a line in a cart. Price is the product's base price at add time;
// AppliedPrice is the price after promotion/discount precedence, refreshed on
// every add/update so live carts always carry current promotions.
// Invariant: AppliedPrice <= Price.
type CartItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:ux_cart_items_cart_product,priority:1"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_cart_items_cart_product,priority:2"`
	Quantity       int             `gorm:"column:quantity;not null"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	AppliedPrice   decimal.Decimal `gorm:"column:applied_price;type:numeric(12,2);not null"`
	HasPromotion   bool            `gorm:"column:has_promotion;not null;default:false"`
	AllowPromocode bool            `gorm:"column:allow_promocode;not null;default:true"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
