// Package client_repo provides read-only PostgreSQL access to the client store.
package client_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"facturio/internal/core/apperror"
	"facturio/internal/core/id"
	"facturio/internal/domain/client"
	"facturio/internal/infrastructure/storage/postgres"
)

const clientsTable = "clients"

// Repo implements client.Repository.
type Repo struct {
	txm *postgres.TxManager
}

// NewRepo creates a new client repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{txm: txm}
}

// Compile-time check.
var _ client.Repository = (*Repo)(nil)

// GetByID retrieves a billing profile.
func (r *Repo) GetByID(ctx context.Context, clientID id.ID) (*client.Client, error) {
	sql, args, err := squirrel.StatementBuilder.
		PlaceholderFormat(squirrel.Dollar).
		Select("id", "name", "tax_id", "email", "address").
		From(clientsTable).
		Where(squirrel.Eq{"id": clientID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var c client.Client
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("client", clientID.String())
		}
		return nil, fmt.Errorf("get client: %w", err)
	}

	return &c, nil
}
