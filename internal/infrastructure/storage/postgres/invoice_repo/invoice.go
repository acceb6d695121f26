// Package invoice_repo provides the PostgreSQL invoice repository.
package invoice_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"facturio/internal/core/apperror"
	"facturio/internal/core/id"
	"facturio/internal/domain/invoice"
	"facturio/internal/infrastructure/storage/postgres"
)

const (
	invoicesTable = "invoices"
	itemsTable    = "invoice_items"

	// orderUniqueConstraint backs the one-invoice-per-order invariant.
	orderUniqueConstraint = "invoices_order_id_key"
)

var invoiceCols = []string{
	"id", "order_id", "client_id",
	"invoice_number", "prefix", "suffix",
	"bill_to_name", "bill_to_tax_id",
	"total_cents", "currency",
	"status", "due_date",
	"created_at", "updated_at", "version",
}

// Repo implements invoice.Repository.
type Repo struct {
	txm *postgres.TxManager
}

// NewRepo creates a new invoice repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm}
}

// Compile-time check.
var _ invoice.Repository = (*Repo)(nil)

// Builder returns a new squirrel builder.
func (r *Repo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().Select(invoiceCols...).From(invoicesTable)
}

// Insert persists the invoice and its items atomically.
// A duplicate order_id is reported as inserted=false, never as an error, so
// the derivation engine can resolve the race as idempotent success.
func (r *Repo) Insert(ctx context.Context, inv *invoice.Invoice) (bool, error) {
	querier := r.txm.GetQuerier(ctx)

	q := r.Builder().
		Insert(invoicesTable).
		Columns(invoiceCols...).
		Values(
			inv.ID, inv.OrderID, inv.ClientID,
			inv.InvoiceNumber, inv.Prefix, inv.Suffix,
			inv.BillToName, inv.BillToTaxID,
			inv.TotalCents, inv.Currency,
			inv.Status, inv.DueDate,
			inv.CreatedAt, inv.UpdatedAt, inv.Version,
		).
		Suffix("ON CONFLICT (order_id) DO NOTHING")

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		// The (prefix, invoice_number, suffix) constraint can only fire on a
		// reused number, which the allocator rules out; anything else is a
		// genuine storage failure.
		if isUniqueViolation(err, orderUniqueConstraint) {
			return false, nil
		}
		return false, fmt.Errorf("insert invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := r.insertItems(ctx, inv.ID, inv.Items); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repo) insertItems(ctx context.Context, invoiceID id.ID, items []invoice.Item) error {
	if len(items) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(itemsTable).
		Columns("id", "invoice_id", "variant_id", "qty", "price_cents")
	for _, item := range items {
		q = q.Values(item.ID, invoiceID, item.VariantID, item.Qty, item.PriceCents)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert items: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}
	return nil
}

// GetByID retrieves an invoice with its items.
func (r *Repo) GetByID(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	return r.getOne(ctx, squirrel.Eq{"id": invoiceID}, invoiceID.String())
}

// GetByOrderID retrieves the invoice derived from the given order.
func (r *Repo) GetByOrderID(ctx context.Context, orderID id.ID) (*invoice.Invoice, error) {
	return r.getOne(ctx, squirrel.Eq{"order_id": orderID}, orderID.String())
}

func (r *Repo) getOne(ctx context.Context, pred squirrel.Eq, key string) (*invoice.Invoice, error) {
	sql, args, err := r.baseSelect().Where(pred).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	var inv invoice.Invoice
	if err := pgxscan.Get(ctx, querier, &inv, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("invoice", key)
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}

	items, err := r.getItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Items = items

	return &inv, nil
}

func (r *Repo) getItems(ctx context.Context, invoiceID id.ID) ([]invoice.Item, error) {
	sql, args, err := r.Builder().
		Select("id", "invoice_id", "variant_id", "qty", "price_cents").
		From(itemsTable).
		Where(squirrel.Eq{"invoice_id": invoiceID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}

	var items []invoice.Item
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	return items, nil
}

// UpdateStatus applies a status change with an optimistic prior-status check.
func (r *Repo) UpdateStatus(ctx context.Context, invoiceID id.ID, expected, target invoice.Status, dueDate *time.Time) error {
	q := r.Builder().
		Update(invoicesTable).
		Set("status", target).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": invoiceID}).
		Where(squirrel.Eq{"status": expected})
	if dueDate != nil {
		q = q.Set("due_date", *dueDate)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing invoice from a lost optimistic check.
		var exists bool
		checkSQL := "SELECT EXISTS (SELECT 1 FROM " + invoicesTable + " WHERE id = $1)"
		if err := querier.QueryRow(ctx, checkSQL, invoiceID).Scan(&exists); err != nil {
			return fmt.Errorf("check invoice exists: %w", err)
		}
		if !exists {
			return apperror.NewNotFound("invoice", invoiceID.String())
		}
		return apperror.NewConcurrentModification("invoice", invoiceID.String())
	}
	return nil
}

// MarkOverdue transitions every sent invoice whose due date lies before now.
// The status predicate makes each row's update its own optimistic check; the
// transitioned ids are returned so the caller can audit each one.
func (r *Repo) MarkOverdue(ctx context.Context, now time.Time) ([]id.ID, error) {
	sql, args, err := r.Builder().
		Update(invoicesTable).
		Set("status", invoice.StatusOverdue).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"status": invoice.StatusSent}).
		Where(squirrel.NotEq{"due_date": nil}).
		Where(squirrel.Lt{"due_date": now}).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build overdue update: %w", err)
	}

	var ids []id.ID
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("mark overdue: %w", err)
	}
	return ids, nil
}

// List retrieves invoices with filtering, items not loaded.
func (r *Repo) List(ctx context.Context, filter invoice.ListFilter) (invoice.ListResult, error) {
	result := invoice.ListResult{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if filter.ClientID != nil {
		q = q.Where(squirrel.Eq{"client_id": *filter.ClientID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.DateTo})
	}
	if filter.Search != "" {
		// Match against the displayed number (prefix || number || suffix).
		q = q.Where(squirrel.ILike{"prefix || invoice_number::text || suffix": "%" + filter.Search + "%"})
	}

	countQ := r.Builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}

	return result, nil
}

func parseOrderBy(orderBy string) (string, error) {
	allowed := map[string]struct{}{
		"invoice_number": {},
		"created_at":     {},
		"updated_at":     {},
		"due_date":       {},
		"total_cents":    {},
		"status":         {},
	}

	if strings.TrimSpace(orderBy) == "" {
		return "invoice_number DESC", nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if _, ok := allowed[field]; !ok {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}

	return field + " " + direction, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
