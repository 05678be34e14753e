package webhooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymentwebhook "github.com/saudamarket/storefront-backend/internal/webhooks/payment"
	pkgerrors "github.com/saudamarket/storefront-backend/pkg/errors"
)

type stubWebhookService struct {
	outcome paymentwebhook.Outcome
	err     error
	params  map[string]string
	calls   int
}

func (s *stubWebhookService) HandleNotification(_ context.Context, params map[string]string) (paymentwebhook.Outcome, error) {
	s.calls++
	s.params = params
	return s.outcome, s.err
}

func postForm(t *testing.T, handler http.HandlerFunc, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPaymentWebhookProcessed(t *testing.T) {
	svc := &stubWebhookService{outcome: paymentwebhook.OutcomeProcessed}
	handler := PaymentWebhook(svc, nil)

	form := url.Values{}
	form.Set("order", "ORD-123")
	form.Set("payment_status", "success")
	form.Set("sign", "abc")

	rec := postForm(t, handler, form)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, "ORD-123", svc.params["order"])
	assert.Equal(t, "abc", svc.params["sign"])

	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "processed", body.Data["outcome"])
}

func TestPaymentWebhookRejectedSignature(t *testing.T) {
	svc := &stubWebhookService{
		outcome: paymentwebhook.OutcomeRejected,
		err:     pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid payment notification signature"),
	}
	handler := PaymentWebhook(svc, nil)

	form := url.Values{}
	form.Set("order", "ORD-123")
	form.Set("sign", "tampered")

	rec := postForm(t, handler, form)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPaymentWebhookTransientFailureGetsRetryableStatus(t *testing.T) {
	svc := &stubWebhookService{
		err: pkgerrors.New(pkgerrors.CodeDependency, "redis down"),
	}
	handler := PaymentWebhook(svc, nil)

	form := url.Values{}
	form.Set("order", "ORD-123")
	form.Set("sign", "abc")

	rec := postForm(t, handler, form)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPaymentWebhookAcceptsQueryParams(t *testing.T) {
	svc := &stubWebhookService{outcome: paymentwebhook.OutcomeDuplicate}
	handler := PaymentWebhook(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/payment?order=ORD-9&payment_status=failed&sign=xyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ORD-9", svc.params["order"])
	assert.Equal(t, "xyz", svc.params["sign"])
}

func TestPaymentWebhookNilService(t *testing.T) {
	handler := PaymentWebhook(nil, nil)

	rec := postForm(t, handler, url.Values{})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
