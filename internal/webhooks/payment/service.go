package paymentwebhook

import (
	"context"
	"fmt"

	"github.com/saudamarket/storefront-backend/internal/payments"
	"github.com/saudamarket/storefront-backend/pkg/db/models"
	pkgerrors "github.com/saudamarket/storefront-backend/pkg/errors"
	"github.com/saudamarket/storefront-backend/pkg/logger"
	"github.com/saudamarket/storefront-backend/pkg/metrics"
)

// Outcome tells the transport layer how to answer the gateway.
type Outcome string

const (
	// OutcomeProcessed means the notification changed order state.
	OutcomeProcessed Outcome = "processed"
	// OutcomeDuplicate means the delivery was already handled.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored means a terminal business condition (order missing,
	// already reconciled); retrying cannot change it, so the gateway still
	// gets a success response.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeRejected means the notification failed verification.
	OutcomeRejected Outcome = "rejected"
)

type reconciler interface {
	ConfirmPayment(ctx context.Context, orderNumber string) (*models.Order, error)
	FailPayment(ctx context.Context, orderNumber string) (*models.Order, error)
}

type deliveryGuard interface {
	CheckAndMark(ctx context.Context, deliveryID string) (bool, error)
	Delete(ctx context.Context, deliveryID string) error
}

// Service processes inbound payment notifications end to end.
type Service struct {
	codec      *payments.Codec
	guard      deliveryGuard
	reconciler reconciler
	log        *logger.Logger
	metrics    *metrics.PaymentMetrics
}

// NewService wires the webhook processing stack.
func NewService(codec *payments.Codec, guard deliveryGuard, rec reconciler, log *logger.Logger, m *metrics.PaymentMetrics) (*Service, error) {
	if codec == nil {
		return nil, fmt.Errorf("payment codec required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if rec == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	return &Service{
		codec:      codec,
		guard:      guard,
		reconciler: rec,
		log:        log,
		metrics:    m,
	}, nil
}

// HandleNotification verifies, dedupes and reconciles one delivery. The
// returned error is non-nil only for conditions where a gateway retry can
// help; terminal business failures come back as an Outcome with a nil error.
func (s *Service) HandleNotification(ctx context.Context, params map[string]string) (Outcome, error) {
	if !s.codec.Verify(params) {
		s.metrics.ObserveWebhook(string(OutcomeRejected))
		return OutcomeRejected, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid payment notification signature")
	}

	notification, err := ParseNotification(params)
	if err != nil {
		s.metrics.ObserveWebhook(string(OutcomeRejected))
		return OutcomeRejected, err
	}

	// The signature is unique per signed payload, which makes it the
	// natural delivery id for deduplication.
	deliveryID := params[payments.SignField]
	seen, err := s.guard.CheckAndMark(ctx, deliveryID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook idempotency")
	}
	if seen {
		s.metrics.ObserveWebhook(string(OutcomeDuplicate))
		return OutcomeDuplicate, nil
	}

	outcome, err := s.reconcile(ctx, notification)
	if err != nil {
		// Unmark so the gateway's retry is not swallowed by the guard.
		if delErr := s.guard.Delete(ctx, deliveryID); delErr != nil && s.log != nil {
			s.log.Error(ctx, "release webhook idempotency marker", delErr)
		}
		return "", err
	}

	s.metrics.ObserveWebhook(string(outcome))
	return outcome, nil
}

func (s *Service) reconcile(ctx context.Context, notification *Notification) (Outcome, error) {
	ctx = s.logCtx(ctx, notification.OrderNumber)

	var err error
	if notification.Successful() {
		_, err = s.reconciler.ConfirmPayment(ctx, notification.OrderNumber)
	} else {
		_, err = s.reconciler.FailPayment(ctx, notification.OrderNumber)
	}
	if err == nil {
		return OutcomeProcessed, nil
	}

	// Missing orders and finished reconciliations are terminal: the gateway
	// is told "OK" so it stops retrying a delivery that can never succeed
	// differently.
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) || pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		if s.log != nil {
			s.log.Warn(ctx, fmt.Sprintf("payment notification ignored: %v", err))
		}
		return OutcomeIgnored, nil
	}
	return "", err
}

func (s *Service) logCtx(ctx context.Context, orderNumber string) context.Context {
	if s.log == nil {
		return ctx
	}
	return s.log.WithOrderNumber(ctx, orderNumber)
}
