package invoice

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"facturio/internal/core/apperror"
	"facturio/internal/core/id"
	"facturio/internal/core/tx"
	"facturio/internal/domain/client"
	"facturio/internal/domain/order"
	"facturio/internal/domain/sequence"
)

// --- Fakes ---

// fakeTxManager runs the function directly; the in-memory repos below are
// already atomic per operation. Serializable runs are counted so tests can
// assert the creation path upgrades its isolation.
type fakeTxManager struct {
	serializable atomic.Int64
}

func (f *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeTxManager) RunSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	f.serializable.Add(1)
	return fn(ctx)
}

var _ tx.SerializableManager = (*fakeTxManager)(nil)

// fakeInvoiceRepo is an in-memory Repository that enforces the same
// order uniqueness and optimistic status checks as the real storage.
type fakeInvoiceRepo struct {
	mu       sync.Mutex
	byID     map[id.ID]*Invoice
	byOrder  map[id.ID]id.ID
	inserted int
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		byID:    make(map[id.ID]*Invoice),
		byOrder: make(map[id.ID]id.ID),
	}
}

func cloneInvoice(inv *Invoice) *Invoice {
	cp := *inv
	cp.Items = append([]Item(nil), inv.Items...)
	return &cp
}

func (r *fakeInvoiceRepo) Insert(ctx context.Context, inv *Invoice) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byOrder[inv.OrderID]; exists {
		return false, nil
	}
	r.byID[inv.ID] = cloneInvoice(inv)
	r.byOrder[inv.OrderID] = inv.ID
	r.inserted++
	return true, nil
}

func (r *fakeInvoiceRepo) GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[invoiceID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", invoiceID.String())
	}
	return cloneInvoice(inv), nil
}

func (r *fakeInvoiceRepo) GetByOrderID(ctx context.Context, orderID id.ID) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	invoiceID, ok := r.byOrder[orderID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", orderID.String())
	}
	return cloneInvoice(r.byID[invoiceID]), nil
}

func (r *fakeInvoiceRepo) UpdateStatus(ctx context.Context, invoiceID id.ID, expected, target Status, dueDate *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[invoiceID]
	if !ok {
		return apperror.NewNotFound("invoice", invoiceID.String())
	}
	if inv.Status != expected {
		return apperror.NewConcurrentModification("invoice", invoiceID.String())
	}
	inv.Status = target
	if dueDate != nil {
		inv.DueDate = dueDate
	}
	inv.UpdatedAt = time.Now().UTC()
	inv.Version++
	return nil
}

func (r *fakeInvoiceRepo) MarkOverdue(ctx context.Context, now time.Time) ([]id.ID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []id.ID
	for _, inv := range r.byID {
		if inv.Status == StatusSent && inv.DueDate != nil && inv.DueDate.Before(now) {
			inv.Status = StatusOverdue
			inv.Version++
			ids = append(ids, inv.ID)
		}
	}
	return ids, nil
}

func (r *fakeInvoiceRepo) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []*Invoice
	for _, inv := range r.byID {
		if filter.Status != nil && inv.Status != *filter.Status {
			continue
		}
		if filter.ClientID != nil && (inv.ClientID == nil || *inv.ClientID != *filter.ClientID) {
			continue
		}
		if filter.Search != "" && !strings.Contains(inv.DisplayNumber(), filter.Search) {
			continue
		}
		items = append(items, cloneInvoice(inv))
	}

	desc := strings.HasPrefix(filter.OrderBy, "-")
	sort.Slice(items, func(i, j int) bool {
		if desc {
			return items[i].InvoiceNumber > items[j].InvoiceNumber
		}
		return items[i].InvoiceNumber < items[j].InvoiceNumber
	})

	result := ListResult{
		TotalCount: int64(len(items)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if filter.Offset < len(items) {
		items = items[filter.Offset:]
	} else {
		items = nil
	}
	if filter.Limit > 0 && filter.Limit < len(items) {
		items = items[:filter.Limit]
	}
	result.Items = items
	return result, nil
}

func (r *fakeInvoiceRepo) Stats(ctx context.Context, filter StatsFilter) (*Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stats Stats
	for _, inv := range r.byID {
		if filter.ClientID != nil && (inv.ClientID == nil || *inv.ClientID != *filter.ClientID) {
			continue
		}
		stats.TotalInvoices++
		switch {
		case inv.Status == StatusPaid:
			stats.PaidCount++
			stats.PaidAmountCents += inv.TotalCents
		case inv.Status == StatusOverdue:
			stats.OverdueCount++
			stats.OverdueAmountCents += inv.TotalCents
		case inv.Status.Pending():
			stats.PendingCount++
			stats.PendingAmountCents += inv.TotalCents
		case inv.Status == StatusCancelled:
			stats.CancelledCount++
		}
		if inv.Status != StatusCancelled {
			stats.TotalAmountCents += inv.TotalCents
		}
	}
	return &stats, nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[id.ID]*order.Order
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, orderID id.ID) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ord, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("order", orderID.String())
	}
	return ord, nil
}

type fakeClientRepo struct {
	clients map[id.ID]*client.Client
}

func (r *fakeClientRepo) GetByID(ctx context.Context, clientID id.ID) (*client.Client, error) {
	c, ok := r.clients[clientID]
	if !ok {
		return nil, apperror.NewNotFound("client", clientID.String())
	}
	return c, nil
}

type recordedEvent struct {
	action    string
	invoiceID id.ID
	details   map[string]any
}

type fakeAuditLog struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (a *fakeAuditLog) Record(ctx context.Context, action string, invoiceID id.ID, details map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, recordedEvent{action: action, invoiceID: invoiceID, details: details})
	return nil
}

// --- Test fixture ---

type fixture struct {
	service   *Service
	invoices  *fakeInvoiceRepo
	orders    *fakeOrderRepo
	clients   *fakeClientRepo
	allocator *sequence.MockAllocator
	txm       *fakeTxManager
	audit     *fakeAuditLog
}

func newFixture() *fixture {
	invoices := newFakeInvoiceRepo()
	orders := &fakeOrderRepo{orders: make(map[id.ID]*order.Order)}
	clients := &fakeClientRepo{clients: make(map[id.ID]*client.Client)}
	allocator := sequence.NewMockAllocator("FAC-", "")
	txm := &fakeTxManager{}
	audit := &fakeAuditLog{}

	service := NewService(invoices, orders, clients, allocator, txm, audit, DefaultServiceConfig())

	return &fixture{
		service:   service,
		invoices:  invoices,
		orders:    orders,
		clients:   clients,
		allocator: allocator,
		txm:       txm,
		audit:     audit,
	}
}

func (f *fixture) addOrder(status order.Status, clientID *id.ID, lines ...order.Line) *order.Order {
	var total int64
	for _, l := range lines {
		total += l.PriceCents * l.Qty
	}
	ord := &order.Order{
		ID:         id.New(),
		ClientID:   clientID,
		Status:     status,
		TotalCents: total,
		Currency:   "EUR",
		Lines:      lines,
	}
	f.orders.mu.Lock()
	f.orders.orders[ord.ID] = ord
	f.orders.mu.Unlock()
	return ord
}

func (f *fixture) addClient(name, taxID, email string) *client.Client {
	c := &client.Client{ID: id.New(), Name: name, TaxID: taxID, Email: email}
	f.clients.clients[c.ID] = c
	return c
}

// --- Creation ---

func TestCreateFromOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	billed := f.addClient("Acme GmbH", "DE123456789", "billing@acme.example")
	ord := f.addOrder(order.StatusDelivered, &billed.ID,
		order.Line{VariantID: id.New(), Qty: 2, PriceCents: 1500},
		order.Line{VariantID: id.New(), Qty: 1, PriceCents: 999},
	)

	result, err := f.service.CreateFromOrder(ctx, ord.ID, nil)
	if err != nil {
		t.Fatalf("CreateFromOrder failed: %v", err)
	}
	if result.AlreadyExisted {
		t.Error("first creation should not report AlreadyExisted")
	}
	if result.Warning != nil {
		t.Errorf("unexpected warning: %v", result.Warning)
	}

	inv := result.Invoice
	if inv.InvoiceNumber != 1 {
		t.Errorf("first invoice number = %d, want 1", inv.InvoiceNumber)
	}
	if inv.DisplayNumber() != "FAC-1" {
		t.Errorf("display number = %q, want FAC-1", inv.DisplayNumber())
	}
	if inv.Status != StatusDraft {
		t.Errorf("new invoice status = %s, want draft", inv.Status)
	}
	if inv.TotalCents != 3999 {
		t.Errorf("total = %d, want 3999", inv.TotalCents)
	}
	if len(inv.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(inv.Items))
	}
	if inv.BillToName != "Acme GmbH" || inv.BillToTaxID != "DE123456789" {
		t.Errorf("billing snapshot not taken: %q / %q", inv.BillToName, inv.BillToTaxID)
	}
	if inv.DueDate != nil {
		t.Error("draft invoice should have no due date yet")
	}

	f.audit.mu.Lock()
	defer f.audit.mu.Unlock()
	if len(f.audit.events) != 1 || f.audit.events[0].action != "created" {
		t.Errorf("expected one 'created' audit event, got %v", f.audit.events)
	}
}

func TestCreateFromOrder_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	ord := f.addOrder(order.StatusDelivered, nil,
		order.Line{VariantID: id.New(), Qty: 1, PriceCents: 100})

	first, err := f.service.CreateFromOrder(ctx, ord.ID, nil)
	if err != nil {
		t.Fatalf("first creation failed: %v", err)
	}

	second, err := f.service.CreateFromOrder(ctx, ord.ID, nil)
	if err != nil {
		t.Fatalf("second creation failed: %v", err)
	}
	if !second.AlreadyExisted {
		t.Error("second creation should report AlreadyExisted")
	}
	if second.Invoice.ID != first.Invoice.ID {
		t.Error("second creation must return the same invoice")
	}
	if f.invoices.inserted != 1 {
		t.Errorf("inserted %d invoices, want 1", f.invoices.inserted)
	}
	// The fast path answers without touching the counter.
	if next := f.allocator.NextNumber(); next != 2 {
		t.Errorf("counter advanced to %d, want 2", next)
	}
}

func TestCreateFromOrder_ConcurrentSingleInvoice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	ord := f.addOrder(order.StatusDelivered, nil,
		order.Line{VariantID: id.New(), Qty: 1, PriceCents: 2500})

	const callers = 16
	results := make([]*CreateResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n], errs[n] = f.service.CreateFromOrder(ctx, ord.ID, nil)
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if !results[i].AlreadyExisted {
			created++
		}
		if results[i].Invoice.ID != results[0].Invoice.ID {
			t.Error("all callers must observe the same invoice")
		}
	}
	if created != 1 {
		t.Errorf("%d callers created an invoice, want exactly 1", created)
	}
	if f.invoices.inserted != 1 {
		t.Errorf("inserted %d invoices, want 1", f.invoices.inserted)
	}
}

func TestCreateFromOrder_IneligibleOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, status := range []order.Status{order.StatusPending, order.StatusProcessing, order.StatusShipped, order.StatusCancelled} {
		ord := f.addOrder(status, nil,
			order.Line{VariantID: id.New(), Qty: 1, PriceCents: 100})

		_, err := f.service.CreateFromOrder(ctx, ord.ID, nil)
		if err == nil {
			t.Fatalf("order in status %s should not be invoiceable", status)
		}
		if !apperror.IsOrderNotEligible(err) {
			t.Errorf("expected ORDER_NOT_ELIGIBLE for %s, got %v", status, err)
		}
	}

	// Eligibility is checked before allocation, so no number was consumed.
	if next := f.allocator.NextNumber(); next != 1 {
		t.Errorf("counter advanced to %d for ineligible orders, want 1", next)
	}
}

func TestCreateFromOrder_TotalMismatchWarning(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	ord := f.addOrder(order.StatusDelivered, nil,
		order.Line{VariantID: id.New(), Qty: 2, PriceCents: 500})
	ord.TotalCents = 1100 // disagrees with 2*500

	result, err := f.service.CreateFromOrder(ctx, ord.ID, nil)
	if err != nil {
		t.Fatalf("creation should succeed despite mismatch: %v", err)
	}
	if result.Warning == nil {
		t.Fatal("expected integrity mismatch warning")
	}
	if result.Warning.Code != apperror.CodeIntegrityMismatch {
		t.Errorf("warning code = %s, want %s", result.Warning.Code, apperror.CodeIntegrityMismatch)
	}
	// The invoice carries its own computed total, not the order's.
	if result.Invoice.TotalCents != 1000 {
		t.Errorf("invoice total = %d, want computed 1000", result.Invoice.TotalCents)
	}
}

func TestCreateFromOrder_SequentialNumbers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var numbers []uint64
	for i := 0; i < 5; i++ {
		ord := f.addOrder(order.StatusDelivered, nil,
			order.Line{VariantID: id.New(), Qty: 1, PriceCents: 100})
		result, err := f.service.CreateFromOrder(ctx, ord.ID, nil)
		if err != nil {
			t.Fatalf("creation %d failed: %v", i, err)
		}
		numbers = append(numbers, result.Invoice.InvoiceNumber)
	}

	for i, n := range numbers {
		if n != uint64(i+1) {
			t.Errorf("invoice %d received number %d, want %d", i, n, i+1)
		}
	}
}

func TestCreateFromOrder_OrderNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.service.CreateFromOrder(context.Background(), id.New(), nil)
	if !apperror.IsNotFound(err) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestCreateFromOrder_SerializableTransaction(t *testing.T) {
	f := newFixture()

	ord := f.addOrder(order.StatusDelivered, nil,
		order.Line{VariantID: id.New(), Qty: 1, PriceCents: 100})

	if _, err := f.service.CreateFromOrder(context.Background(), ord.ID, nil); err != nil {
		t.Fatalf("creation failed: %v", err)
	}
	if got := f.txm.serializable.Load(); got != 1 {
		t.Errorf("creation ran %d serializable transactions, want 1", got)
	}
}

// --- Lifecycle ---

func (f *fixture) createInvoice(t *testing.T) *Invoice {
	t.Helper()
	ord := f.addOrder(order.StatusDelivered, nil,
		order.Line{VariantID: id.New(), Qty: 1, PriceCents: 1000})
	result, err := f.service.CreateFromOrder(context.Background(), ord.ID, nil)
	if err != nil {
		t.Fatalf("fixture invoice creation failed: %v", err)
	}
	return result.Invoice
}

func TestTransition_SendSetsDueDate(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return now }

	inv := f.createInvoice(t)

	sent, err := f.service.Transition(context.Background(), inv.ID, StatusSent)
	if err != nil {
		t.Fatalf("draft -> sent failed: %v", err)
	}
	if sent.Status != StatusSent {
		t.Errorf("status = %s, want sent", sent.Status)
	}
	if sent.DueDate == nil {
		t.Fatal("sending should set the due date")
	}
	want := now.Add(30 * 24 * time.Hour)
	if !sent.DueDate.Equal(want) {
		t.Errorf("due date = %v, want %v", sent.DueDate, want)
	}
}

func TestTransition_InvalidRejected(t *testing.T) {
	f := newFixture()
	inv := f.createInvoice(t)

	_, err := f.service.Transition(context.Background(), inv.ID, StatusPaid)
	if !apperror.IsInvalidTransition(err) {
		t.Errorf("draft -> paid should be INVALID_TRANSITION, got %v", err)
	}

	// The stored invoice is untouched.
	stored, err := f.service.GetByID(context.Background(), inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != StatusDraft {
		t.Errorf("stored status = %s, want draft", stored.Status)
	}
}

func TestTransition_OverdueTimeGuard(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return now }
	ctx := context.Background()

	inv := f.createInvoice(t)
	if _, err := f.service.Transition(ctx, inv.ID, StatusSent); err != nil {
		t.Fatal(err)
	}

	// Due date lies 30 days ahead; overdue must be rejected.
	_, err := f.service.Transition(ctx, inv.ID, StatusOverdue)
	if !apperror.IsInvalidTransition(err) {
		t.Errorf("overdue before due date should be INVALID_TRANSITION, got %v", err)
	}

	// Past the due date the transition goes through.
	f.service.now = func() time.Time { return now.Add(31 * 24 * time.Hour) }
	overdue, err := f.service.Transition(ctx, inv.ID, StatusOverdue)
	if err != nil {
		t.Fatalf("overdue after due date failed: %v", err)
	}
	if overdue.Status != StatusOverdue {
		t.Errorf("status = %s, want overdue", overdue.Status)
	}

	// Overdue invoices can still be paid.
	paid, err := f.service.Transition(ctx, inv.ID, StatusPaid)
	if err != nil {
		t.Fatalf("overdue -> paid failed: %v", err)
	}
	if paid.Status != StatusPaid {
		t.Errorf("status = %s, want paid", paid.Status)
	}
}

func TestTransition_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv := f.createInvoice(t)
	if _, err := f.service.Transition(ctx, inv.ID, StatusSent); err != nil {
		t.Fatal(err)
	}

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = f.service.Transition(ctx, inv.ID, StatusPaid)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperror.IsConcurrentModification(err), apperror.IsInvalidTransition(err):
			// Lost the race; either the optimistic check fired or the
			// loser observed the already-paid status.
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d transitions succeeded, want exactly 1", succeeded)
	}
}

func TestSweepOverdue(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return now }
	ctx := context.Background()

	// Three sent invoices, one of them far past due. A draft stays untouched.
	pastDue := f.createInvoice(t)
	if _, err := f.service.Transition(ctx, pastDue.ID, StatusSent); err != nil {
		t.Fatal(err)
	}
	current := f.createInvoice(t)
	if _, err := f.service.Transition(ctx, current.ID, StatusSent); err != nil {
		t.Fatal(err)
	}
	draft := f.createInvoice(t)

	// Jump past the first invoice's due date only.
	due := now.Add(30 * 24 * time.Hour)
	early := due.Add(-time.Hour)
	f.invoices.mu.Lock()
	f.invoices.byID[current.ID].DueDate = &due
	f.invoices.byID[pastDue.ID].DueDate = &early
	f.invoices.mu.Unlock()
	f.service.now = func() time.Time { return due.Add(-time.Minute) }

	count, err := f.service.SweepOverdue(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if count != 1 {
		t.Errorf("sweep transitioned %d, want 1", count)
	}

	check := func(invoiceID id.ID, want Status) {
		t.Helper()
		stored, err := f.service.GetByID(ctx, invoiceID)
		if err != nil {
			t.Fatal(err)
		}
		if stored.Status != want {
			t.Errorf("invoice %s status = %s, want %s", invoiceID, stored.Status, want)
		}
	}
	check(pastDue.ID, StatusOverdue)
	check(current.ID, StatusSent)
	check(draft.ID, StatusDraft)

	// The sweep audits each transitioned invoice like an explicit transition.
	f.audit.mu.Lock()
	defer f.audit.mu.Unlock()
	var swept []recordedEvent
	for _, ev := range f.audit.events {
		if ev.action == "status_changed" && ev.details["sweep"] == true {
			swept = append(swept, ev)
		}
	}
	if len(swept) != 1 {
		t.Fatalf("sweep recorded %d audit events, want 1", len(swept))
	}
	if swept[0].invoiceID != pastDue.ID {
		t.Errorf("sweep audited invoice %s, want %s", swept[0].invoiceID, pastDue.ID)
	}
	if swept[0].details["from"] != string(StatusSent) || swept[0].details["to"] != string(StatusOverdue) {
		t.Errorf("sweep audit details = %v, want sent -> overdue", swept[0].details)
	}
}

// --- Reporting ---

func TestStats(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return now }
	ctx := context.Background()

	mk := func(priceCents int64) *Invoice {
		ord := f.addOrder(order.StatusDelivered, nil,
			order.Line{VariantID: id.New(), Qty: 1, PriceCents: priceCents})
		result, err := f.service.CreateFromOrder(ctx, ord.ID, nil)
		if err != nil {
			t.Fatal(err)
		}
		return result.Invoice
	}

	// One paid, one overdue, one still draft.
	paid := mk(10000)
	if _, err := f.service.Transition(ctx, paid.ID, StatusSent); err != nil {
		t.Fatal(err)
	}
	if _, err := f.service.Transition(ctx, paid.ID, StatusPaid); err != nil {
		t.Fatal(err)
	}

	overdue := mk(5000)
	if _, err := f.service.Transition(ctx, overdue.ID, StatusSent); err != nil {
		t.Fatal(err)
	}
	f.service.now = func() time.Time { return now.Add(31 * 24 * time.Hour) }
	if _, err := f.service.Transition(ctx, overdue.ID, StatusOverdue); err != nil {
		t.Fatal(err)
	}

	mk(2000) // stays draft

	stats, err := f.service.Stats(ctx, StatsFilter{})
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	if stats.TotalInvoices != 3 {
		t.Errorf("total invoices = %d, want 3", stats.TotalInvoices)
	}
	if stats.TotalAmountCents != 17000 {
		t.Errorf("total amount = %d, want 17000", stats.TotalAmountCents)
	}
	if stats.PaidCount != 1 || stats.PaidAmountCents != 10000 {
		t.Errorf("paid = %d/%d, want 1/10000", stats.PaidCount, stats.PaidAmountCents)
	}
	if stats.OverdueCount != 1 || stats.OverdueAmountCents != 5000 {
		t.Errorf("overdue = %d/%d, want 1/5000", stats.OverdueCount, stats.OverdueAmountCents)
	}
	if stats.PendingCount != 1 || stats.PendingAmountCents != 2000 {
		t.Errorf("pending = %d/%d, want 1/2000", stats.PendingCount, stats.PendingAmountCents)
	}
	if stats.CancelledCount != 0 {
		t.Errorf("cancelled count = %d, want 0", stats.CancelledCount)
	}
	if sum := stats.PaidCount + stats.OverdueCount + stats.PendingCount + stats.CancelledCount; sum != stats.TotalInvoices {
		t.Errorf("status counts sum to %d, total is %d", sum, stats.TotalInvoices)
	}
}

func TestStats_CancelledCountedNotSummed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mk := func(priceCents int64) *Invoice {
		ord := f.addOrder(order.StatusDelivered, nil,
			order.Line{VariantID: id.New(), Qty: 1, PriceCents: priceCents})
		result, err := f.service.CreateFromOrder(ctx, ord.ID, nil)
		if err != nil {
			t.Fatal(err)
		}
		return result.Invoice
	}

	sent := mk(5000)
	if _, err := f.service.Transition(ctx, sent.ID, StatusSent); err != nil {
		t.Fatal(err)
	}
	cancelled := mk(7500)
	if _, err := f.service.Transition(ctx, cancelled.ID, StatusCancelled); err != nil {
		t.Fatal(err)
	}

	stats, err := f.service.Stats(ctx, StatsFilter{})
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	if stats.TotalInvoices != 2 || stats.CancelledCount != 1 {
		t.Errorf("totals = %d invoices / %d cancelled, want 2/1", stats.TotalInvoices, stats.CancelledCount)
	}
	// The cancelled amount never reaches the grand total.
	if stats.TotalAmountCents != 5000 {
		t.Errorf("total amount = %d, want 5000", stats.TotalAmountCents)
	}
}

func TestList_StatusFilterAndOrdering(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.createInvoice(t)
	}

	result, err := f.service.List(ctx, DefaultListFilter())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.TotalCount != 3 {
		t.Errorf("total count = %d, want 3", result.TotalCount)
	}
	// Default ordering is newest number first.
	for i := 1; i < len(result.Items); i++ {
		if result.Items[i-1].InvoiceNumber < result.Items[i].InvoiceNumber {
			t.Error("expected descending invoice numbers")
		}
	}

	draft := StatusDraft
	filter := DefaultListFilter()
	filter.Status = &draft
	result, err = f.service.List(ctx, filter)
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalCount != 3 {
		t.Errorf("draft filter matched %d, want 3", result.TotalCount)
	}

	paid := StatusPaid
	filter.Status = &paid
	result, err = f.service.List(ctx, filter)
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalCount != 0 {
		t.Errorf("paid filter matched %d, want 0", result.TotalCount)
	}
}
