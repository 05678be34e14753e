package payments

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/saudamarket/storefront-backend/pkg/config"
	"github.com/saudamarket/storefront-backend/pkg/db/models"
	pkgerrors "github.com/saudamarket/storefront-backend/pkg/errors"
)

// LinkBuilder produces the signed gateway redirect URL for a pending order.
type LinkBuilder struct {
	codec       *Codec
	gatewayURL  string
	successURL  string
	failURL     string
	callbackURL string
}

// NewLinkBuilder wires the payment-link builder from configuration.
func NewLinkBuilder(codec *Codec, cfg config.PaymentConfig) (*LinkBuilder, error) {
	if codec == nil {
		return nil, fmt.Errorf("payment codec required")
	}
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("payment gateway url required")
	}
	return &LinkBuilder{
		codec:       codec,
		gatewayURL:  cfg.GatewayURL,
		successURL:  cfg.SuccessURL,
		failURL:     cfg.FailURL,
		callbackURL: cfg.CallbackURL,
	}, nil
}

// PaymentLink builds the URL the customer is redirected to. The parameter map
// carries the order reference, customer contact, the itemized lines under
// positional array keys, the callback URLs and a sign field over all of it.
func (b *LinkBuilder) PaymentLink(order *models.Order) (string, error) {
	if order == nil || order.OrderNumber == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order with order number required")
	}

	params := b.linkParams(order)
	params[SignField] = b.codec.Sign(params)

	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}

	separator := "?"
	if strings.Contains(b.gatewayURL, "?") {
		separator = "&"
	}
	return b.gatewayURL + separator + values.Encode(), nil
}

func (b *LinkBuilder) linkParams(order *models.Order) map[string]string {
	params := map[string]string{
		"order":  order.OrderNumber,
		"amount": order.Total.StringFixed(2),
		"name":   order.CustomerName,
		"phone":  order.CustomerPhone,
	}
	if order.CustomerEmail != nil && *order.CustomerEmail != "" {
		params["email"] = *order.CustomerEmail
	}
	for i, item := range order.Items {
		idx := strconv.Itoa(i)
		params["products["+idx+"]"] = item.Name
		params["prices["+idx+"]"] = item.AppliedPrice.StringFixed(2)
		params["quantities["+idx+"]"] = strconv.Itoa(item.Quantity)
	}
	if b.callbackURL != "" {
		params["callback_url"] = b.callbackURL
	}
	if b.successURL != "" {
		params["success_url"] = b.successURL
	}
	if b.failURL != "" {
		params["fail_url"] = b.failURL
	}
	return params
}
