// Package order defines the read-only view of the commerce order store.
//
// Orders are owned by the fulfillment system; this core only reads them to
// decide invoicing eligibility and to snapshot line items. Nothing here
// mutates an order.
package order

import (
	"context"

	"facturio/internal/core/id"
)

// Status is the fulfillment status of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Order is the read-only order projection consumed by the invoicing core.
type Order struct {
	ID         id.ID  `db:"id" json:"id"`
	ClientID   *id.ID `db:"client_id" json:"clientId,omitempty"`
	Status     Status `db:"status" json:"status"`
	TotalCents int64  `db:"total_cents" json:"totalCents"`
	Currency   string `db:"currency" json:"currency"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one order line at the price agreed at order time.
type Line struct {
	VariantID  id.ID `db:"variant_id" json:"variantId"`
	Qty        int64 `db:"qty" json:"qty"`
	PriceCents int64 `db:"price_cents" json:"priceCents"`
}

// Invoiceable reports whether the order has reached a state that permits
// invoicing. Only delivered orders qualify.
func (o *Order) Invoiceable() bool {
	return o.Status == StatusDelivered
}

// Repository is the read-only order store contract.
type Repository interface {
	// GetByID returns the order with its lines.
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)
}
