// Package client defines the read-only view of the client store.
//
// A client is the billing identity referenced by invoices. Billing data is
// read once at invoice-creation time; later profile changes never alter a
// finalized invoice.
package client

import (
	"context"

	"facturio/internal/core/id"
)

// Client is a billing profile.
type Client struct {
	ID      id.ID  `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	TaxID   string `db:"tax_id" json:"taxId,omitempty"`
	Email   string `db:"email" json:"email,omitempty"`
	Address string `db:"address" json:"address,omitempty"`
}

// Repository is the read-only client store contract.
type Repository interface {
	GetByID(ctx context.Context, clientID id.ID) (*Client, error)
}
