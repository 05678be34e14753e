// Package pricing holds the pure price and total computations shared by the
// cart, checkout and order layers. All arithmetic is decimal; these values
// feed payment reconciliation and must never pass through floats.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/saudamarket/storefront-backend/pkg/db/models"
	"github.com/saudamarket/storefront-backend/pkg/enums"
)

var oneHundred = decimal.NewFromInt(100)

// AppliedPrice resolves the unit price actually charged for a product.
// Precedence is fixed: promotion price first, then discount price, then the
// base price. First match wins.
func AppliedPrice(p models.Product) decimal.Decimal {
	if p.HasPromotion && p.PromotionPrice != nil {
		return *p.PromotionPrice
	}
	if p.IsDiscount && p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

// DiscountPercent returns the rounded percentage saved against the base
// price, or nil when nothing is saved.
func DiscountPercent(price, applied decimal.Decimal) *int64 {
	if price.IsZero() || applied.GreaterThanOrEqual(price) {
		return nil
	}
	pct := price.Sub(applied).Mul(oneHundred).Div(price).Round(0).IntPart()
	return &pct
}

// Line is a priced cart line feeding total computation.
type Line struct {
	Price        decimal.Decimal
	AppliedPrice decimal.Decimal
	Quantity     int
}

// Totals aggregates a cart's monetary summary.
type Totals struct {
	Subtotal          decimal.Decimal `json:"subtotal"`
	Discount          decimal.Decimal `json:"discount"`
	PromocodeDiscount decimal.Decimal `json:"promocode_discount"`
	Total             decimal.Decimal `json:"total"`
	ItemsCount        int             `json:"items_count"`
}

// LinesFromCartItems converts persisted cart lines into pricing input.
func LinesFromCartItems(items []models.CartItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{
			Price:        item.Price,
			AppliedPrice: item.AppliedPrice,
			Quantity:     item.Quantity,
		})
	}
	return lines
}

// ComputeTotals derives subtotal, line discounts and the promocode discount
// for the given lines. The promocode, when present, is assumed to have passed
// validity checks already; its discount is still clamped so the total never
// goes negative.
func ComputeTotals(lines []Line, promo *models.Promocode) Totals {
	totals := Totals{
		Subtotal:          decimal.Zero,
		Discount:          decimal.Zero,
		PromocodeDiscount: decimal.Zero,
		Total:             decimal.Zero,
	}

	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		totals.Subtotal = totals.Subtotal.Add(line.AppliedPrice.Mul(qty))
		totals.Discount = totals.Discount.Add(line.Price.Sub(line.AppliedPrice).Mul(qty))
		totals.ItemsCount += line.Quantity
	}

	if promo != nil {
		totals.PromocodeDiscount = PromocodeDiscount(promo, totals.Subtotal)
	}

	totals.Total = totals.Subtotal.Sub(totals.PromocodeDiscount)
	if totals.Total.IsNegative() {
		totals.Total = decimal.Zero
	}
	return totals
}

// PromocodeDiscount computes the discount a promocode yields on the given
// subtotal, clamped so it never exceeds the subtotal.
func PromocodeDiscount(promo *models.Promocode, subtotal decimal.Decimal) decimal.Decimal {
	if promo == nil {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch promo.DiscountType {
	case enums.DiscountTypePercent:
		discount = subtotal.Mul(promo.DiscountValue).Div(oneHundred).Round(2)
	case enums.DiscountTypeFixed:
		discount = promo.DiscountValue
	default:
		return decimal.Zero
	}

	if discount.IsNegative() {
		return decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		return subtotal
	}
	return discount
}
