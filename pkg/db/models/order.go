package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/saudamarket/storefront-backend/pkg/enums"
)

// Order is the immutable checkout snapshot. OrderNumber is the external
// reference handed to the payment gateway and the idempotency key for
// reconciliation; it is never reused. After creation only PaymentStatus
// (reconciler) and Status (fulfillment) change.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber       string              `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	UserID            *uuid.UUID          `gorm:"column:user_id;type:uuid"`
	CustomerName      string              `gorm:"column:customer_name;not null"`
	CustomerPhone     string              `gorm:"column:customer_phone;not null"`
	CustomerEmail     *string             `gorm:"column:customer_email"`
	DeliveryAddress   *string             `gorm:"column:delivery_address"`
	Comment           *string             `gorm:"column:comment"`
	Subtotal          decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount          decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null"`
	PromocodeDiscount decimal.Decimal     `gorm:"column:promocode_discount;type:numeric(12,2);not null"`
	Total             decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	PromocodeID       *uuid.UUID          `gorm:"column:promocode_id;type:uuid"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;not null;default:'pending'"`
	Status            enums.OrderStatus   `gorm:"column:status;not null;default:'new'"`
	PaidAt            *time.Time          `gorm:"column:paid_at"`
	Items             []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
