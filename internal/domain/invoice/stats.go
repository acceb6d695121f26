package invoice

import (
	"time"

	"facturio/internal/core/id"
)

// StatsFilter narrows the aggregation to a client and/or creation date range.
type StatsFilter struct {
	ClientID *id.ID
	DateFrom *time.Time
	DateTo   *time.Time
}

// Stats are aggregate counts and monetary totals over the invoice collection.
//
// Pending is the union of draft and sent. Cancelled invoices are counted in
// TotalInvoices and CancelledCount but excluded from TotalAmountCents.
// Invariant: TotalInvoices = PaidCount + OverdueCount + PendingCount + CancelledCount.
type Stats struct {
	TotalInvoices    int64 `json:"totalInvoices"`
	TotalAmountCents int64 `json:"totalAmountCents"`

	PaidCount       int64 `json:"paidCount"`
	PaidAmountCents int64 `json:"paidAmountCents"`

	OverdueCount       int64 `json:"overdueCount"`
	OverdueAmountCents int64 `json:"overdueAmountCents"`

	PendingCount       int64 `json:"pendingCount"`
	PendingAmountCents int64 `json:"pendingAmountCents"`

	CancelledCount int64 `json:"cancelledCount"`
}
