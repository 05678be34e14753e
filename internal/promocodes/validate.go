package promocodes

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/saudamarket/storefront-backend/pkg/db/models"
	pkgerrors "github.com/saudamarket/storefront-backend/pkg/errors"
)

// Validate checks a promocode against the clock and the order subtotal.
// Each violated constraint gets its own message so callers can surface it.
func Validate(promo *models.Promocode, now time.Time, subtotal decimal.Decimal) error {
	if promo == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "promocode not found")
	}
	if !promo.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "promocode is not active")
	}
	if promo.StartsAt != nil && now.Before(*promo.StartsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "promocode is not yet valid")
	}
	if promo.EndsAt != nil && now.After(*promo.EndsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "promocode has expired")
	}
	if promo.MaxUses > 0 && promo.UsedCount >= promo.MaxUses {
		return pkgerrors.New(pkgerrors.CodeValidation, "promocode usage limit reached")
	}
	if subtotal.LessThan(promo.MinOrderAmount) {
		return pkgerrors.New(pkgerrors.CodeValidation, "order subtotal below promocode minimum")
	}
	return nil
}
