// Package order defines the immutable order record produced at checkout.
package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmstore/storefront/internal/domain/cart"
)

// Status is the fulfillment state of a placed order. Checkout always creates
// orders as StatusProcessing; later transitions belong to an external
// fulfillment process.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Address is the shipping destination captured from the checkout form.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// Order is a frozen record of a completed checkout. Items is a copy of the
// cart taken at the instant of checkout; mutating the cart afterwards does not
// affect it. Status is the only field meant to change after creation.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Items           []cart.LineItem `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Status          Status          `json:"status"`
	ShippingAddress Address         `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
