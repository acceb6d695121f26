// Package invoice provides the invoice lifecycle and derivation engine.
//
// An invoice is derived exactly once from a delivered order, carries a
// strictly sequential number from the singleton counter, and is immutable
// afterward except for its status and due date.
package invoice

import (
	"context"
	"fmt"
	"time"

	"facturio/internal/core/apperror"
	"facturio/internal/core/id"
	"facturio/internal/core/money"
)

// Invoice is a finalized billing document derived from an order.
//
// Numeric identity fields (invoice_number, prefix, suffix) are write-once at
// creation. Only status and due_date change afterward, through the lifecycle
// state machine.
type Invoice struct {
	ID id.ID `db:"id" json:"id"`

	// OrderID references exactly one order; unique across all invoices.
	OrderID  id.ID  `db:"order_id" json:"orderId"`
	ClientID *id.ID `db:"client_id" json:"clientId,omitempty"`

	// Sequential number and the counter's prefix/suffix at assignment time.
	InvoiceNumber uint64 `db:"invoice_number" json:"invoiceNumber"`
	Prefix        string `db:"prefix" json:"prefix"`
	Suffix        string `db:"suffix" json:"suffix"`

	// Billing snapshot taken at creation; later client edits never alter it.
	BillToName  string `db:"bill_to_name" json:"billToName,omitempty"`
	BillToTaxID string `db:"bill_to_tax_id" json:"billToTaxId,omitempty"`

	// TotalCents always equals the sum of items' price_cents * qty.
	TotalCents int64  `db:"total_cents" json:"totalCents"`
	Currency   string `db:"currency" json:"currency"`

	Status  Status     `db:"status" json:"status"`
	DueDate *time.Time `db:"due_date" json:"dueDate,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`

	Items []Item `db:"-" json:"items"`
}

// Item is one invoiced line, a historical snapshot of an order line.
// Items are written once with their parent invoice and never change.
type Item struct {
	ID        id.ID `db:"id" json:"id"`
	InvoiceID id.ID `db:"invoice_id" json:"invoiceId"`

	// VariantID references the product variant at time of order.
	VariantID id.ID `db:"variant_id" json:"variantId"`

	Qty int64 `db:"qty" json:"qty"`

	// PriceCents is the unit price at order time, never recomputed
	// from the current catalog.
	PriceCents int64 `db:"price_cents" json:"priceCents"`
}

// TotalCents returns qty * unit price for this line.
func (i Item) TotalCents() int64 {
	return money.LineTotal(i.PriceCents, i.Qty)
}

// DisplayNumber returns the human-facing invoice number,
// the concatenation prefix + number + suffix (e.g. "FAC-42").
func (inv *Invoice) DisplayNumber() string {
	return fmt.Sprintf("%s%d%s", inv.Prefix, inv.InvoiceNumber, inv.Suffix)
}

// ComputeTotal sums the items' line totals.
func ComputeTotal(items []Item) int64 {
	var total int64
	for _, it := range items {
		total += it.TotalCents()
	}
	return total
}

// Validate checks internal invariants (without database access).
func (inv *Invoice) Validate(ctx context.Context) error {
	if id.IsNil(inv.OrderID) {
		return apperror.NewValidation("order is required").
			WithDetail("field", "orderId")
	}
	if inv.InvoiceNumber == 0 {
		return apperror.NewValidation("invoice number is required").
			WithDetail("field", "invoiceNumber")
	}
	if !inv.Status.Valid() {
		return apperror.NewValidation("unknown status").
			WithDetail("status", string(inv.Status))
	}
	if inv.TotalCents < 0 {
		return apperror.NewValidation("total must not be negative").
			WithDetail("field", "totalCents")
	}
	for n, item := range inv.Items {
		if item.Qty <= 0 {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "items").
				WithDetail("lineNo", n+1)
		}
		if item.PriceCents < 0 {
			return apperror.NewValidation("price must not be negative").
				WithDetail("field", "items").
				WithDetail("lineNo", n+1)
		}
	}
	if got := ComputeTotal(inv.Items); got != inv.TotalCents {
		return apperror.NewValidation("total does not match item sum").
			WithDetail("totalCents", inv.TotalCents).
			WithDetail("itemSum", got)
	}
	return nil
}
