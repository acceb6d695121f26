package invoice

import (
	"context"
	"fmt"
	"time"

	"facturio/internal/core/apperror"
	"facturio/internal/core/id"
	"facturio/internal/core/tx"
	"facturio/internal/domain/client"
	"facturio/internal/domain/order"
	"facturio/internal/domain/sequence"
	"facturio/pkg/logger"
)

// AuditLog records invoice lifecycle events. Implementations are best-effort:
// the service logs a failed audit write but never fails the operation for it.
type AuditLog interface {
	Record(ctx context.Context, action string, invoiceID id.ID, details map[string]any) error
}

// ServiceConfig holds invoice service settings.
type ServiceConfig struct {
	// DueIn is the default payment period applied when an invoice is sent
	// without an explicit due date.
	DueIn time.Duration
}

// DefaultServiceConfig returns production defaults (30 days to pay).
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{DueIn: 30 * 24 * time.Hour}
}

// Service implements the invoice derivation engine, the lifecycle state
// machine and the reporting facade.
type Service struct {
	invoices  Repository
	orders    order.Repository
	clients   client.Repository
	allocator sequence.Allocator
	txManager tx.Manager
	audit     AuditLog // optional
	cfg       ServiceConfig

	// now is replaceable in tests.
	now func() time.Time
}

// NewService creates the invoice service. audit may be nil.
func NewService(
	invoices Repository,
	orders order.Repository,
	clients client.Repository,
	allocator sequence.Allocator,
	txManager tx.Manager,
	audit AuditLog,
	cfg ServiceConfig,
) *Service {
	return &Service{
		invoices:  invoices,
		orders:    orders,
		clients:   clients,
		allocator: allocator,
		txManager: txManager,
		audit:     audit,
		cfg:       cfg,
		now:       time.Now,
	}
}

// CreateResult is the outcome of CreateFromOrder.
type CreateResult struct {
	Invoice *Invoice `json:"invoice"`

	// AlreadyExisted is true when the order had been invoiced before and the
	// existing invoice is returned (idempotent creation, not an error).
	AlreadyExisted bool `json:"alreadyExisted"`

	// Warning carries an INTEGRITY_MISMATCH when the order's recorded total
	// disagrees with the total computed from its snapshotted items.
	// The invoice is still created, from its own computed total.
	Warning *apperror.AppError `json:"warning,omitempty"`
}

// CreateFromOrder derives an invoice from a delivered order.
//
// At most one invoice ever exists per order: the storage-level uniqueness
// constraint on order_id is the source of truth, and a constraint conflict is
// resolved by returning the existing invoice. Re-triggering the operation
// (retried webhook, double-click) is therefore always safe.
//
// The eligibility check runs before number allocation, so an ineligible order
// never consumes a number. A number consumed on the duplicate path stays
// consumed; gaps from lost races are accepted, duplicates are not.
func (s *Service) CreateFromOrder(ctx context.Context, orderID id.ID, clientID *id.ID) (*CreateResult, error) {
	// Fast path: already invoiced. Purely an optimization; the insert below
	// remains the authoritative duplicate check.
	if existing, err := s.invoices.GetByOrderID(ctx, orderID); err == nil {
		return &CreateResult{Invoice: existing, AlreadyExisted: true}, nil
	} else if !apperror.IsNotFound(err) {
		return nil, err
	}

	// The creation transaction upgrades to serializable isolation when the
	// manager supports it; the serialization failures this can raise on the
	// counter row are absorbed by the allocator's retry loop.
	runTx := s.txManager.RunInTransaction
	if sm, ok := s.txManager.(tx.SerializableManager); ok {
		runTx = sm.RunSerializable
	}

	var result *CreateResult
	err := runTx(ctx, func(ctx context.Context) error {
		ord, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !ord.Invoiceable() {
			return apperror.NewOrderNotEligible(orderID, string(ord.Status))
		}

		if clientID == nil {
			clientID = ord.ClientID
		}
		var billTo *client.Client
		if clientID != nil {
			billTo, err = s.clients.GetByID(ctx, *clientID)
			if err != nil {
				return fmt.Errorf("snapshot client: %w", err)
			}
		}

		alloc, err := s.allocator.Allocate(ctx)
		if err != nil {
			return err
		}

		inv := s.buildInvoice(ord, clientID, billTo, alloc)

		var warning *apperror.AppError
		if inv.TotalCents != ord.TotalCents {
			warning = apperror.NewIntegrityMismatch(orderID, ord.TotalCents, inv.TotalCents)
			logger.Warn(ctx, "order total mismatch",
				"order_id", orderID,
				"order_total", ord.TotalCents,
				"computed_total", inv.TotalCents)
		}

		if err := inv.Validate(ctx); err != nil {
			return err
		}

		inserted, err := s.invoices.Insert(ctx, inv)
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		if !inserted {
			// Lost the race to a concurrent creation for the same order.
			existing, err := s.invoices.GetByOrderID(ctx, orderID)
			if err != nil {
				return fmt.Errorf("fetch existing invoice: %w", err)
			}
			result = &CreateResult{Invoice: existing, AlreadyExisted: true}
			return nil
		}

		result = &CreateResult{Invoice: inv, Warning: warning}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyExisted {
		s.recordAudit(ctx, "created", result.Invoice.ID, map[string]any{
			"order_id":    orderID,
			"number":      result.Invoice.DisplayNumber(),
			"total_cents": result.Invoice.TotalCents,
		})
		logger.Info(ctx, "invoice created",
			"id", result.Invoice.ID,
			"number", result.Invoice.DisplayNumber(),
			"order_id", orderID)
	}

	return result, nil
}

// buildInvoice assembles the invoice record and its item snapshot.
func (s *Service) buildInvoice(ord *order.Order, clientID *id.ID, billTo *client.Client, alloc sequence.Allocation) *Invoice {
	invID := id.New()
	items := make([]Item, 0, len(ord.Lines))
	for _, line := range ord.Lines {
		items = append(items, Item{
			ID:         id.New(),
			InvoiceID:  invID,
			VariantID:  line.VariantID,
			Qty:        line.Qty,
			PriceCents: line.PriceCents,
		})
	}

	now := s.now().UTC()
	inv := &Invoice{
		ID:            invID,
		OrderID:       ord.ID,
		ClientID:      clientID,
		InvoiceNumber: alloc.Number,
		Prefix:        alloc.Prefix,
		Suffix:        alloc.Suffix,
		TotalCents:    ComputeTotal(items),
		Currency:      ord.Currency,
		Status:        StatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
		Items:         items,
	}
	if billTo != nil {
		inv.BillToName = billTo.Name
		inv.BillToTaxID = billTo.TaxID
	}
	return inv
}

// Transition applies a lifecycle status change.
//
// The permitted transitions are validated against the state machine, then
// applied with an optimistic check that the stored status still matches the
// one the decision was based on, so two simultaneous requests cannot both win.
func (s *Service) Transition(ctx context.Context, invoiceID id.ID, target Status) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	from := inv.Status
	if err := ValidateTransition(from, target); err != nil {
		return nil, err
	}

	var dueDate *time.Time
	switch target {
	case StatusOverdue:
		// Time-guarded: only valid once the due date has passed.
		if inv.DueDate == nil || !s.now().After(*inv.DueDate) {
			return nil, apperror.NewInvalidTransition(string(from), string(target)).
				WithDetail("reason", "due date has not passed")
		}
	case StatusSent:
		// Sending starts the payment clock when no due date was set.
		if inv.DueDate == nil && s.cfg.DueIn > 0 {
			due := s.now().UTC().Add(s.cfg.DueIn)
			dueDate = &due
		}
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.invoices.UpdateStatus(ctx, invoiceID, from, target, dueDate)
	})
	if err != nil {
		return nil, err
	}

	inv.Status = target
	if dueDate != nil {
		inv.DueDate = dueDate
	}
	inv.Version++

	s.recordAudit(ctx, "status_changed", invoiceID, map[string]any{
		"from": string(from),
		"to":   string(target),
	})
	logger.Info(ctx, "invoice status changed",
		"id", invoiceID,
		"from", from,
		"to", target)

	return inv, nil
}

// SweepOverdue transitions every sent invoice whose due date has passed to
// overdue. Intended for the periodic sweep job; safe to run concurrently with
// explicit transitions because each row's update carries its own status check.
func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	var ids []id.ID
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		ids, err = s.invoices.MarkOverdue(ctx, s.now())
		return err
	})
	if err != nil {
		return 0, err
	}

	for _, invoiceID := range ids {
		s.recordAudit(ctx, "status_changed", invoiceID, map[string]any{
			"from":  string(StatusSent),
			"to":    string(StatusOverdue),
			"sweep": true,
		})
	}
	if len(ids) > 0 {
		logger.Info(ctx, "overdue sweep completed", "transitioned", len(ids))
	}
	return int64(len(ids)), nil
}

// GetByID returns an invoice with its items.
func (s *Service) GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	return s.invoices.GetByID(ctx, invoiceID)
}

// List returns invoices matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	return s.invoices.List(ctx, filter)
}

// Stats aggregates counts and totals, optionally filtered by client and
// creation date range.
func (s *Service) Stats(ctx context.Context, filter StatsFilter) (*Stats, error) {
	return s.invoices.Stats(ctx, filter)
}

func (s *Service) recordAudit(ctx context.Context, action string, invoiceID id.ID, details map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, action, invoiceID, details); err != nil {
		logger.Warn(ctx, "audit record failed",
			"action", action,
			"invoice_id", invoiceID,
			"error", err)
	}
}
