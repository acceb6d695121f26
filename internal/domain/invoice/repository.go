package invoice

import (
	"context"
	"time"

	"facturio/internal/core/id"
)

// Repository defines storage operations for invoices.
//
// The one-invoice-per-order invariant is owned by the storage layer through a
// uniqueness constraint on order_id; Insert reports a conflict instead of
// failing so the engine can resolve it as idempotent success.
type Repository interface {
	// Insert persists the invoice and its items atomically.
	// Returns inserted=false when an invoice for the same order already
	// exists (uniqueness constraint on order_id); nothing is written then.
	Insert(ctx context.Context, inv *Invoice) (inserted bool, err error)

	// GetByID returns the invoice with its items.
	GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error)

	// GetByOrderID returns the invoice derived from the given order.
	GetByOrderID(ctx context.Context, orderID id.ID) (*Invoice, error)

	// UpdateStatus applies a status change with an optimistic check that the
	// row still carries the expected prior status. A non-nil dueDate is
	// written together with the status. Returns CONCURRENT_MODIFICATION when
	// the expected status no longer matches, NOT_FOUND when the id is unknown.
	UpdateStatus(ctx context.Context, invoiceID id.ID, expected, target Status, dueDate *time.Time) error

	// MarkOverdue transitions every sent invoice whose due date lies before
	// now to overdue. Returns the ids of the invoices transitioned.
	MarkOverdue(ctx context.Context, now time.Time) ([]id.ID, error)

	// List returns invoices matching the filter, items not loaded.
	List(ctx context.Context, filter ListFilter) (ListResult, error)

	// Stats aggregates counts and totals over the invoice collection.
	Stats(ctx context.Context, filter StatsFilter) (*Stats, error)
}

// ListFilter narrows List results.
type ListFilter struct {
	ClientID *id.ID
	Status   *Status
	DateFrom *time.Time
	DateTo   *time.Time

	// Search matches the displayed invoice number.
	Search string

	// OrderBy specifies sorting (e.g. "created_at", "-invoice_number")
	OrderBy string

	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:   50,
		OrderBy: "-invoice_number",
	}
}

// ListResult contains paginated results.
type ListResult struct {
	Items      []*Invoice `json:"items"`
	TotalCount int64      `json:"totalCount"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}
