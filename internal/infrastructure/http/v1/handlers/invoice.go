package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"facturio/internal/core/apperror"
	"facturio/internal/core/id"
	"facturio/internal/core/money"
	"facturio/internal/domain/client"
	"facturio/internal/domain/invoice"
	"facturio/internal/infrastructure/http/v1/dto"
	"facturio/internal/infrastructure/mailer"
	"facturio/internal/infrastructure/pdf"
	"facturio/internal/infrastructure/storage/postgres"
	"facturio/pkg/logger"
)

// InvoiceHandler handles invoice endpoints.
type InvoiceHandler struct {
	*BaseHandler
	service  *invoice.Service
	clients  client.Repository
	renderer *pdf.Renderer
	mailer   *mailer.Mailer        // optional
	audit    *postgres.AuditService // optional
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(
	base *BaseHandler,
	service *invoice.Service,
	clients client.Repository,
	renderer *pdf.Renderer,
	m *mailer.Mailer,
	audit *postgres.AuditService,
) *InvoiceHandler {
	return &InvoiceHandler{
		BaseHandler: base,
		service:     service,
		clients:     clients,
		renderer:    renderer,
		mailer:      m,
		audit:       audit,
	}
}

// RegisterRoutes registers invoice endpoints on the group.
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/stats", h.Stats)
	rg.POST("/sweep-overdue", h.SweepOverdue)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/transition", h.Transition)
	rg.GET("/:id/pdf", h.PDF)
	rg.POST("/:id/send", h.Send)
	rg.GET("/:id/audit", h.Audit)
}

// Create derives an invoice from a delivered order.
// POST /api/v1/invoices
//
// Responds 201 for a newly created invoice, 200 when the order was already
// invoiced and the existing invoice is returned.
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	orderID, err := id.Parse(req.OrderID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid order id").WithDetail("orderId", req.OrderID))
		return
	}

	var clientID *id.ID
	if req.ClientID != nil {
		parsed, err := id.Parse(*req.ClientID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid client id").WithDetail("clientId", *req.ClientID))
			return
		}
		clientID = &parsed
	}

	result, err := h.service.CreateFromOrder(c.Request.Context(), orderID, clientID)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.FromCreateResult(result)
	if result.AlreadyExisted {
		h.OK(c, resp)
		return
	}

	// Notify the client off the request path. A failed render or send is
	// logged only; the invoice is already persisted and stays that way.
	if h.mailer != nil && result.Invoice.ClientID != nil {
		go h.notifyCreated(result.Invoice.ID)
	}

	h.Created(c, resp)
}

func (h *InvoiceHandler) notifyCreated(invoiceID id.ID) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	inv, err := h.service.GetByID(ctx, invoiceID)
	if err != nil {
		logger.Warn(ctx, "notify: invoice fetch failed", "invoice_id", invoiceID, "error", err)
		return
	}
	billed, err := h.clients.GetByID(ctx, *inv.ClientID)
	if err != nil || billed.Email == "" {
		logger.Warn(ctx, "notify: no deliverable client address", "invoice_id", invoiceID, "error", err)
		return
	}

	subject := fmt.Sprintf("Invoice %s", inv.DisplayNumber())
	body := fmt.Sprintf("<p>Please find attached invoice %s for %s.</p>",
		inv.DisplayNumber(), money.FormatWithCurrency(inv.TotalCents, inv.Currency))

	// A failed render degrades to a plain notification; the document stays
	// available through the pdf endpoint.
	doc, err := h.renderer.Render(inv)
	if err != nil {
		logger.Warn(ctx, "notify: pdf render failed, sending without attachment",
			"invoice_id", invoiceID, "error", err)
		if err := h.mailer.Send(ctx, []string{billed.Email}, subject, body); err != nil {
			logger.Warn(ctx, "notify: send failed", "invoice_id", invoiceID, "error", err)
		}
		return
	}

	filename := fmt.Sprintf("invoice-%s.pdf", inv.DisplayNumber())
	if err := h.mailer.SendWithAttachment(ctx, []string{billed.Email}, subject, body, filename, doc); err != nil {
		logger.Warn(ctx, "notify: send failed", "invoice_id", invoiceID, "error", err)
		return
	}
	logger.Info(ctx, "invoice notification sent", "invoice_id", invoiceID, "to", billed.Email)
}

// Get returns an invoice with its items.
// GET /api/v1/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoiceID, ok := h.pathID(c)
	if !ok {
		return
	}

	inv, err := h.service.GetByID(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInvoice(inv))
}

// List returns invoices matching the filter.
// GET /api/v1/invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	var req dto.InvoiceFilterRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter := invoice.DefaultListFilter()
	if req.ClientID != "" {
		clientID, err := id.Parse(req.ClientID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid client id").WithDetail("clientId", req.ClientID))
			return
		}
		filter.ClientID = &clientID
	}
	if req.Status != "" {
		status := invoice.Status(req.Status)
		if !status.Valid() {
			h.Error(c, apperror.NewValidation("unknown status").WithDetail("status", req.Status))
			return
		}
		filter.Status = &status
	}
	filter.DateFrom = req.DateFrom
	filter.DateTo = req.DateTo
	filter.Search = req.Search
	if req.OrderBy != "" {
		filter.OrderBy = req.OrderBy
	}
	if req.Limit > 0 {
		filter.Limit = req.Limit
	}
	filter.Offset = req.Offset

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInvoiceList(result))
}

// Stats aggregates counts and totals over the invoice collection.
// GET /api/v1/invoices/stats
func (h *InvoiceHandler) Stats(c *gin.Context) {
	var req dto.StatsFilterRequest
	if !h.BindQuery(c, &req) {
		return
	}

	var filter invoice.StatsFilter
	if req.ClientID != "" {
		clientID, err := id.Parse(req.ClientID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid client id").WithDetail("clientId", req.ClientID))
			return
		}
		filter.ClientID = &clientID
	}
	filter.DateFrom = req.DateFrom
	filter.DateTo = req.DateTo

	stats, err := h.service.Stats(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, stats)
}

// Transition applies a lifecycle status change.
// POST /api/v1/invoices/:id/transition
func (h *InvoiceHandler) Transition(c *gin.Context) {
	invoiceID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req dto.TransitionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	target := invoice.Status(req.Status)
	if !target.Valid() {
		h.Error(c, apperror.NewValidation("unknown status").WithDetail("status", req.Status))
		return
	}

	inv, err := h.service.Transition(c.Request.Context(), invoiceID, target)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInvoice(inv))
}

// SweepOverdue transitions every sent invoice past its due date to overdue.
// POST /api/v1/invoices/sweep-overdue
func (h *InvoiceHandler) SweepOverdue(c *gin.Context) {
	count, err := h.service.SweepOverdue(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.SweepResponse{Transitioned: count})
}

// PDF renders the invoice document.
// GET /api/v1/invoices/:id/pdf
func (h *InvoiceHandler) PDF(c *gin.Context) {
	invoiceID, ok := h.pathID(c)
	if !ok {
		return
	}

	inv, err := h.service.GetByID(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.renderer.Render(inv)
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}

	filename := fmt.Sprintf("invoice-%s.pdf", inv.DisplayNumber())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", doc)
}

// Send renders the invoice and mails it to the billed client.
// POST /api/v1/invoices/:id/send
func (h *InvoiceHandler) Send(c *gin.Context) {
	if h.mailer == nil {
		h.Error(c, apperror.NewConflict("mail delivery is not configured"))
		return
	}

	invoiceID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req dto.SendInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	inv, err := h.service.GetByID(ctx, invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	to := req.To
	if to == "" {
		if inv.ClientID == nil {
			h.Error(c, apperror.NewValidation("invoice has no client and no recipient was given"))
			return
		}
		billed, err := h.clients.GetByID(ctx, *inv.ClientID)
		if err != nil {
			h.Error(c, err)
			return
		}
		if billed.Email == "" {
			h.Error(c, apperror.NewValidation("client has no email on file").
				WithDetail("clientId", billed.ID.String()))
			return
		}
		to = billed.Email
	}

	doc, err := h.renderer.Render(inv)
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}

	subject := fmt.Sprintf("Invoice %s", inv.DisplayNumber())
	body := fmt.Sprintf("<p>Please find attached invoice %s for %s.</p>",
		inv.DisplayNumber(), money.FormatWithCurrency(inv.TotalCents, inv.Currency))
	filename := fmt.Sprintf("invoice-%s.pdf", inv.DisplayNumber())

	if err := h.mailer.SendWithAttachment(ctx, []string{to}, subject, body, filename, doc); err != nil {
		h.Error(c, apperror.NewInternal(err).WithDetail("op", "send invoice"))
		return
	}

	// A successfully dispatched draft moves to sent. The mail is already out,
	// so a lost transition race is logged, not surfaced.
	if inv.Status == invoice.StatusDraft {
		if updated, err := h.service.Transition(ctx, inv.ID, invoice.StatusSent); err != nil {
			logger.Warn(ctx, "post-send transition failed", "invoice_id", inv.ID, "error", err)
		} else {
			inv = updated
		}
	}

	h.OK(c, dto.FromInvoice(inv))
}

// Audit returns the invoice's lifecycle event trail.
// GET /api/v1/invoices/:id/audit
func (h *InvoiceHandler) Audit(c *gin.Context) {
	if h.audit == nil {
		h.OK(c, dto.ListResponse{Items: []any{}})
		return
	}

	invoiceID, ok := h.pathID(c)
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	entries, err := h.audit.History(c.Request.Context(), invoiceID, limit)
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}

	h.OK(c, dto.ListResponse{Items: entries, TotalCount: int64(len(entries))})
}

func (h *InvoiceHandler) pathID(c *gin.Context) (id.ID, bool) {
	invoiceID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid invoice id").WithDetail("id", c.Param("id")))
		return id.Nil(), false
	}
	return invoiceID, true
}
