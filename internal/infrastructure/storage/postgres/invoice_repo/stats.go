package invoice_repo

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"

	"facturio/internal/domain/invoice"
)

// Stats aggregates the invoice collection in a single query.
// Pending is draft+sent; cancelled invoices count toward total_invoices but
// are excluded from total_amount_cents.
func (r *Repo) Stats(ctx context.Context, filter invoice.StatsFilter) (*invoice.Stats, error) {
	query := `
		SELECT
			COUNT(*)                                                          AS total_invoices,
			COALESCE(SUM(total_cents) FILTER (WHERE status <> 'cancelled'), 0) AS total_amount_cents,
			COUNT(*) FILTER (WHERE status = 'paid')                           AS paid_count,
			COALESCE(SUM(total_cents) FILTER (WHERE status = 'paid'), 0)      AS paid_amount_cents,
			COUNT(*) FILTER (WHERE status = 'overdue')                        AS overdue_count,
			COALESCE(SUM(total_cents) FILTER (WHERE status = 'overdue'), 0)   AS overdue_amount_cents,
			COUNT(*) FILTER (WHERE status IN ('draft', 'sent'))               AS pending_count,
			COALESCE(SUM(total_cents) FILTER (WHERE status IN ('draft', 'sent')), 0) AS pending_amount_cents,
			COUNT(*) FILTER (WHERE status = 'cancelled')                      AS cancelled_count
		FROM ` + invoicesTable + `
		WHERE 1=1
	`

	args := []any{}
	argIndex := 1

	if filter.ClientID != nil {
		query += fmt.Sprintf(" AND client_id = $%d", argIndex)
		args = append(args, *filter.ClientID)
		argIndex++
	}
	if filter.DateFrom != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, *filter.DateFrom)
		argIndex++
	}
	if filter.DateTo != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIndex)
		args = append(args, *filter.DateTo)
		argIndex++
	}

	var stats invoice.Stats
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("invoice stats: %w", err)
	}

	return &stats, nil
}
