package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/saudamarket/storefront-backend/internal/notifications"
	"github.com/saudamarket/storefront-backend/pkg/db/models"
	"github.com/saudamarket/storefront-backend/pkg/enums"
	pkgerrors "github.com/saudamarket/storefront-backend/pkg/errors"
	"github.com/saudamarket/storefront-backend/pkg/logger"
)

type orderStore interface {
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	MarkPaid(ctx context.Context, orderNumber string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, orderNumber string) (bool, error)
}

// Reconciler applies verified gateway outcomes to orders. Both transitions
// ride on conditional updates, so calling either any number of times yields
// one state change and one notification.
type Reconciler struct {
	orders   orderStore
	notifier notifications.Notifier
	log      *logger.Logger
	now      func() time.Time
}

// NewReconciler wires the payment reconciler.
func NewReconciler(orders orderStore, notifier notifications.Notifier, log *logger.Logger) (*Reconciler, error) {
	if orders == nil {
		return nil, fmt.Errorf("order store required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &Reconciler{
		orders:   orders,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}, nil
}

// ConfirmPayment moves the order pending -> paid. An already-paid order is
// returned unchanged with no side effects; a failed order cannot be revived.
func (r *Reconciler) ConfirmPayment(ctx context.Context, orderNumber string) (*models.Order, error) {
	order, err := r.load(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == enums.PaymentStatusPaid {
		return order, nil
	}
	if order.PaymentStatus == enums.PaymentStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order payment already failed")
	}

	paidAt := r.now().UTC()
	did, err := r.orders.MarkPaid(ctx, orderNumber, paidAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm payment")
	}
	if !did {
		// Lost the race to a concurrent delivery; the winner already
		// notified.
		return r.load(ctx, orderNumber)
	}

	order.PaymentStatus = enums.PaymentStatusPaid
	order.PaidAt = &paidAt

	if r.log != nil {
		r.log.Info(r.log.WithOrderNumber(ctx, orderNumber), "payment confirmed")
	}
	r.notifier.NotifyPaymentConfirmed(ctx, order)
	return order, nil
}

// FailPayment moves the order pending -> failed. Deliveries after a terminal
// state are no-ops; a paid order is never demoted.
func (r *Reconciler) FailPayment(ctx context.Context, orderNumber string) (*models.Order, error) {
	order, err := r.load(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus.IsTerminal() {
		return order, nil
	}

	did, err := r.orders.MarkFailed(ctx, orderNumber)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail payment")
	}
	if !did {
		return r.load(ctx, orderNumber)
	}

	order.PaymentStatus = enums.PaymentStatusFailed
	if r.log != nil {
		r.log.Warn(r.log.WithOrderNumber(ctx, orderNumber), "payment failed")
	}
	return order, nil
}

func (r *Reconciler) load(ctx context.Context, orderNumber string) (*models.Order, error) {
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	order, err := r.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
