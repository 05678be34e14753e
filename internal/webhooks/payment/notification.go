// Package paymentwebhook turns raw gateway callbacks into reconciled payment
// outcomes: verify the signature, dedupe the delivery, classify the status
// and hand the order number to the reconciler.
package paymentwebhook

import (
	"strings"

	"github.com/saudamarket/storefront-backend/internal/payments"
	pkgerrors "github.com/saudamarket/storefront-backend/pkg/errors"
)

// Notification is the typed view of the gateway's flat field bag. Only the
// order reference and the signature are mandatory; every other field is
// whatever the gateway felt like sending that day.
type Notification struct {
	OrderNumber string
	StatusCode  string
	Description string
	Amount      string
	Raw         map[string]string
}

// ParseNotification validates the raw payload at the transport boundary.
// The signature itself is checked separately by the codec; here we only
// require that it is present.
func ParseNotification(params map[string]string) (*Notification, error) {
	orderNumber := strings.TrimSpace(params["order"])
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference missing from notification")
	}
	if strings.TrimSpace(params[payments.SignField]) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "notification signature missing")
	}

	return &Notification{
		OrderNumber: orderNumber,
		StatusCode:  strings.TrimSpace(params["payment_status"]),
		Description: strings.TrimSpace(params["description"]),
		Amount:      strings.TrimSpace(params["amount"]),
		Raw:         params,
	}, nil
}

// Successful reports whether the notification carries a success outcome.
func (n *Notification) Successful() bool {
	return payments.IsSuccessful(n.StatusCode, n.Description)
}
