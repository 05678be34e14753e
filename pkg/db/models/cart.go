package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the mutable shopping aggregate. Identity is either a user id or an
// anonymous session token; never both empty. One live cart per user, at most
// one per session token (enforced by partial unique indexes).
type Cart struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       *uuid.UUID `gorm:"column:user_id;type:uuid"`
	SessionToken *string    `gorm:"column:session_token"`
	ExpiresAt    *time.Time `gorm:"column:expires_at"`
	Items        []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// IsAnonymous reports whether the cart is bound to a session rather than a user.
func (c *Cart) IsAnonymous() bool {
	return c.UserID == nil
}
