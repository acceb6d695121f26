// Package sequence_repo provides the PostgreSQL invoice number allocator.
package sequence_repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"facturio/internal/core/apperror"
	"facturio/internal/domain/sequence"
	"facturio/internal/infrastructure/storage/postgres"
	"facturio/pkg/logger"
)

const counterTable = "invoice_counter"

// QuerierProvider yields the querier for the current context, so allocation
// participates in the caller's transaction when one is active.
// *postgres.TxManager satisfies it.
type QuerierProvider interface {
	GetQuerier(ctx context.Context) postgres.Querier
}

// Allocator implements sequence.Allocator on the singleton counter row.
//
// The whole read-modify-write is one UPDATE ... RETURNING statement, so two
// concurrent allocations serialize on the row lock and each receives a
// distinct consecutive number. Under serializable isolation the statement can
// still fail with a serialization error; those are retried a bounded number
// of times before surfacing ALLOCATION_CONFLICT.
type Allocator struct {
	db QuerierProvider

	maxAttempts int
	backoff     time.Duration
}

// NewAllocator creates an allocator with default retry settings (5 attempts).
func NewAllocator(db QuerierProvider) *Allocator {
	return &Allocator{
		db:          db,
		maxAttempts: 5,
		backoff:     10 * time.Millisecond,
	}
}

// Compile-time check.
var _ sequence.Allocator = (*Allocator)(nil)

// Init creates the counter row if absent, starting at 1. Idempotent.
func (a *Allocator) Init(ctx context.Context, prefix, suffix string) error {
	_, err := a.db.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO `+counterTable+` (id, prefix, suffix, next_number)
		VALUES (1, $1, $2, 1)
		ON CONFLICT (id) DO NOTHING
	`, prefix, suffix)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("op", "counter init")
	}
	return nil
}

// Allocate atomically advances the counter and returns the pre-increment
// value with the prefix/suffix snapshot. The number is permanently consumed.
func (a *Allocator) Allocate(ctx context.Context) (sequence.Allocation, error) {
	var alloc sequence.Allocation
	var lastErr error

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		err := a.db.GetQuerier(ctx).QueryRow(ctx, `
			UPDATE `+counterTable+`
			SET next_number = next_number + 1
			WHERE id = 1
			RETURNING next_number - 1, prefix, suffix
		`).Scan(&alloc.Number, &alloc.Prefix, &alloc.Suffix)
		if err == nil {
			return alloc, nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return alloc, apperror.NewInternal(err).
				WithDetail("op", "allocate").
				WithDetail("reason", "counter row missing, Init not run")
		}
		if !isRetryableConflict(err) {
			return alloc, apperror.NewInternal(err).WithDetail("op", "allocate")
		}

		lastErr = err
		logger.Debug(ctx, "allocation conflict, retrying",
			"attempt", attempt,
			"error", err)
		select {
		case <-ctx.Done():
			return alloc, apperror.NewInternal(ctx.Err()).WithDetail("op", "allocate")
		case <-time.After(a.backoff * time.Duration(attempt)):
		}
	}

	return alloc, apperror.NewAllocationConflict(a.maxAttempts).WithCause(lastErr)
}

// Current reads the counter without advancing it.
func (a *Allocator) Current(ctx context.Context) (uint64, string, string, error) {
	var next uint64
	var prefix, suffix string
	err := a.db.GetQuerier(ctx).QueryRow(ctx, `
		SELECT next_number, prefix, suffix FROM `+counterTable+` WHERE id = 1
	`).Scan(&next, &prefix, &suffix)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", "", apperror.NewNotFound("invoice_counter", 1)
		}
		return 0, "", "", apperror.NewInternal(err).WithDetail("op", "counter read")
	}
	return next, prefix, suffix, nil
}

// isRetryableConflict reports whether err is a transient concurrency failure:
// serialization_failure (40001) or deadlock_detected (40P01).
func isRetryableConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
