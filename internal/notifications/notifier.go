// Package notifications is the outbound customer-notification port. Checkout
// and payment reconciliation fire into it and move on; delivery retries are
// the channel's problem, not the caller's.
package notifications

import (
	"context"

	"github.com/saudamarket/storefront-backend/pkg/db/models"
	"github.com/saudamarket/storefront-backend/pkg/logger"
)

// Notifier receives order lifecycle events. Implementations must not block
// the calling request path and must swallow delivery failures after logging.
type Notifier interface {
	NotifyOrderPlaced(ctx context.Context, order *models.Order)
	NotifyPaymentConfirmed(ctx context.Context, order *models.Order)
}

// LogNotifier writes notifications to the structured log. It is the default
// sink and the stand-in used until a real channel (email, telegram) is wired.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier builds a log-backed notifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// NotifyOrderPlaced records the order-placed event.
func (n *LogNotifier) NotifyOrderPlaced(ctx context.Context, order *models.Order) {
	if n.log == nil || order == nil {
		return
	}
	n.log.Info(n.log.WithOrderNumber(ctx, order.OrderNumber), "notification: order placed")
}

// NotifyPaymentConfirmed records the payment-confirmed event.
func (n *LogNotifier) NotifyPaymentConfirmed(ctx context.Context, order *models.Order) {
	if n.log == nil || order == nil {
		return
	}
	n.log.Info(n.log.WithOrderNumber(ctx, order.OrderNumber), "notification: payment confirmed")
}
