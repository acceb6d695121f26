// Package order_repo provides read-only PostgreSQL access to the order store.
// Orders are owned by the fulfillment system; nothing here writes.
package order_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"facturio/internal/core/apperror"
	"facturio/internal/core/id"
	"facturio/internal/domain/order"
	"facturio/internal/infrastructure/storage/postgres"
)

const (
	ordersTable     = "orders"
	orderItemsTable = "order_items"
)

// Repo implements order.Repository.
type Repo struct {
	txm *postgres.TxManager
}

// NewRepo creates a new order repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm}
}

// Compile-time check.
var _ order.Repository = (*Repo)(nil)

func (r *Repo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// GetByID retrieves an order with its lines.
func (r *Repo) GetByID(ctx context.Context, orderID id.ID) (*order.Order, error) {
	sql, args, err := r.builder().
		Select("id", "client_id", "status", "total_cents", "currency").
		From(ordersTable).
		Where(squirrel.Eq{"id": orderID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	var ord order.Order
	if err := pgxscan.Get(ctx, querier, &ord, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("order", orderID.String())
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	linesSQL, linesArgs, err := r.builder().
		Select("variant_id", "qty", "price_cents").
		From(orderItemsTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &ord.Lines, linesSQL, linesArgs...); err != nil {
		return nil, fmt.Errorf("get order lines: %w", err)
	}

	return &ord, nil
}
