package paymentwebhook

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saudamarket/storefront-backend/internal/payments"
	"github.com/saudamarket/storefront-backend/pkg/db/models"
	"github.com/saudamarket/storefront-backend/pkg/enums"
	pkgerrors "github.com/saudamarket/storefront-backend/pkg/errors"
)

// memIdempotencyStore is an in-memory stand-in for the redis client.
type memIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{keys: make(map[string]string)}
}

func (s *memIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *memIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = "1"
	return true, nil
}

func (s *memIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "test:idempotency:" + scope + ":" + id
}

func (s *memIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

// stubReconciler counts calls and replays scripted errors.
type stubReconciler struct {
	mu         sync.Mutex
	confirmed  int
	failed     int
	confirmErr error
	failErr    error
}

func (r *stubReconciler) ConfirmPayment(ctx context.Context, orderNumber string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.confirmErr != nil {
		return nil, r.confirmErr
	}
	r.confirmed++
	return &models.Order{OrderNumber: orderNumber, PaymentStatus: enums.PaymentStatusPaid}, nil
}

func (r *stubReconciler) FailPayment(ctx context.Context, orderNumber string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}
	r.failed++
	return &models.Order{OrderNumber: orderNumber, PaymentStatus: enums.PaymentStatusFailed}, nil
}

type webhookTestEnv struct {
	codec      *payments.Codec
	svc        *Service
	reconciler *stubReconciler
}

func newWebhookTestEnv(t *testing.T, rec *stubReconciler) *webhookTestEnv {
	t.Helper()

	codec, err := payments.NewCodec("topsecret")
	require.NoError(t, err)
	guard, err := NewIdempotencyGuard(newMemIdempotencyStore(), time.Hour)
	require.NoError(t, err)
	svc, err := NewService(codec, guard, rec, nil, nil)
	require.NoError(t, err)

	return &webhookTestEnv{codec: codec, svc: svc, reconciler: rec}
}

func (e *webhookTestEnv) signedParams(status string) map[string]string {
	params := map[string]string{
		"order":          "ORD-01J8ZX3V9K",
		"amount":         "2000.00",
		"payment_status": status,
	}
	params[payments.SignField] = e.codec.Sign(params)
	return params
}

func TestHandleNotificationSuccessThenDuplicate(t *testing.T) {
	t.Parallel()

	env := newWebhookTestEnv(t, &stubReconciler{})
	ctx := context.Background()
	params := env.signedParams("success")

	outcome, err := env.svc.HandleNotification(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Equal(t, 1, env.reconciler.confirmed)

	// The gateway redelivers the identical payload; it is acknowledged but
	// nothing runs twice.
	outcome, err = env.svc.HandleNotification(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, 1, env.reconciler.confirmed)
}

func TestHandleNotificationFailureStatus(t *testing.T) {
	t.Parallel()

	env := newWebhookTestEnv(t, &stubReconciler{})
	outcome, err := env.svc.HandleNotification(context.Background(), env.signedParams("declined"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Equal(t, 1, env.reconciler.failed)
	assert.Zero(t, env.reconciler.confirmed)
}

func TestHandleNotificationBadSignature(t *testing.T) {
	t.Parallel()

	env := newWebhookTestEnv(t, &stubReconciler{})
	params := env.signedParams("success")
	params["amount"] = "1.00"

	outcome, err := env.svc.HandleNotification(context.Background(), params)
	require.Error(t, err)
	assert.Equal(t, OutcomeRejected, outcome)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Zero(t, env.reconciler.confirmed, "reconciler must never see unverified payloads")

	delete(params, payments.SignField)
	_, err = env.svc.HandleNotification(context.Background(), params)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestHandleNotificationMissingOrderReference(t *testing.T) {
	t.Parallel()

	env := newWebhookTestEnv(t, &stubReconciler{})
	params := map[string]string{"payment_status": "success"}
	params[payments.SignField] = env.codec.Sign(params)

	outcome, err := env.svc.HandleNotification(context.Background(), params)
	require.Error(t, err)
	assert.Equal(t, OutcomeRejected, outcome)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestHandleNotificationUnknownOrderIsTerminal(t *testing.T) {
	t.Parallel()

	rec := &stubReconciler{confirmErr: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	env := newWebhookTestEnv(t, rec)
	ctx := context.Background()
	params := env.signedParams("success")

	outcome, err := env.svc.HandleNotification(ctx, params)
	require.NoError(t, err, "unknown order must be acknowledged, not retried")
	assert.Equal(t, OutcomeIgnored, outcome)

	// The marker stays: redelivery of a terminal notification is a duplicate.
	outcome, err = env.svc.HandleNotification(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
}

func TestHandleNotificationTransientFailureReleasesMarker(t *testing.T) {
	t.Parallel()

	rec := &stubReconciler{confirmErr: pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")}
	env := newWebhookTestEnv(t, rec)
	ctx := context.Background()
	params := env.signedParams("success")

	_, err := env.svc.HandleNotification(ctx, params)
	require.Error(t, err, "transient failures bubble up so the gateway retries")

	// Retry succeeds once the dependency recovers and is not blocked by a
	// stale marker.
	rec.mu.Lock()
	rec.confirmErr = nil
	rec.mu.Unlock()

	outcome, err := env.svc.HandleNotification(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Equal(t, 1, env.reconciler.confirmed)
}
