package orders

import (
	"github.com/google/uuid"
)

// CustomerInfo is the checkout contact block copied onto the order snapshot.
type CustomerInfo struct {
	UserID          *uuid.UUID
	Name            string
	Phone           string
	Email           *string
	DeliveryAddress *string
	Comment         *string
}

// PlaceOrderInput is the full checkout request.
type PlaceOrderInput struct {
	CartID    uuid.UUID
	Customer  CustomerInfo
	Promocode *string
}
