package dto

import (
	"time"

	"facturio/internal/core/apperror"
	"facturio/internal/core/money"
	"facturio/internal/domain/invoice"
)

// --- Requests ---

// CreateInvoiceRequest derives an invoice from an order.
type CreateInvoiceRequest struct {
	OrderID  string  `json:"orderId" binding:"required,uuid"`
	ClientID *string `json:"clientId" binding:"omitempty,uuid"`
}

// TransitionRequest changes an invoice's lifecycle status.
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// SendInvoiceRequest mails the invoice document.
// When To is empty the billed client's address on file is used.
type SendInvoiceRequest struct {
	To string `json:"to" binding:"omitempty,email"`
}

// InvoiceFilterRequest contains invoice list query parameters.
type InvoiceFilterRequest struct {
	ClientID string     `form:"clientId" binding:"omitempty,uuid"`
	Status   string     `form:"status"`
	DateFrom *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo   *time.Time `form:"dateTo" time_format:"2006-01-02"`
	Search   string     `form:"search"`
	OrderBy  string     `form:"orderBy"`
	Limit    int        `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset   int        `form:"offset" binding:"omitempty,min=0"`
}

// StatsFilterRequest contains stats query parameters.
type StatsFilterRequest struct {
	ClientID string     `form:"clientId" binding:"omitempty,uuid"`
	DateFrom *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo   *time.Time `form:"dateTo" time_format:"2006-01-02"`
}

// --- Responses ---

// InvoiceItemResponse is one invoiced line.
type InvoiceItemResponse struct {
	ID         string `json:"id"`
	VariantID  string `json:"variantId"`
	Qty        int64  `json:"qty"`
	PriceCents int64  `json:"priceCents"`
	TotalCents int64  `json:"totalCents"`
}

// InvoiceResponse is the API representation of an invoice.
type InvoiceResponse struct {
	ID            string                `json:"id"`
	OrderID       string                `json:"orderId"`
	ClientID      *string               `json:"clientId,omitempty"`
	InvoiceNumber uint64                `json:"invoiceNumber"`
	DisplayNumber string                `json:"displayNumber"`
	BillToName    string                `json:"billToName,omitempty"`
	BillToTaxID   string                `json:"billToTaxId,omitempty"`
	TotalCents    int64                 `json:"totalCents"`
	Total         string                `json:"total"`
	Currency      string                `json:"currency"`
	Status        string                `json:"status"`
	DueDate       *time.Time            `json:"dueDate,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
	Version       int                   `json:"version"`
	Items         []InvoiceItemResponse `json:"items,omitempty"`
}

// FromInvoice creates InvoiceResponse from invoice.Invoice.
func FromInvoice(inv *invoice.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:            inv.ID.String(),
		OrderID:       inv.OrderID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		DisplayNumber: inv.DisplayNumber(),
		BillToName:    inv.BillToName,
		BillToTaxID:   inv.BillToTaxID,
		TotalCents:    inv.TotalCents,
		Total:         money.Format(inv.TotalCents),
		Currency:      inv.Currency,
		Status:        string(inv.Status),
		DueDate:       inv.DueDate,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
		Version:       inv.Version,
	}
	if inv.ClientID != nil {
		clientID := inv.ClientID.String()
		resp.ClientID = &clientID
	}
	for _, item := range inv.Items {
		resp.Items = append(resp.Items, InvoiceItemResponse{
			ID:         item.ID.String(),
			VariantID:  item.VariantID.String(),
			Qty:        item.Qty,
			PriceCents: item.PriceCents,
			TotalCents: item.TotalCents(),
		})
	}
	return resp
}

// CreateInvoiceResponse carries the invoice plus creation metadata.
type CreateInvoiceResponse struct {
	Invoice        InvoiceResponse `json:"invoice"`
	AlreadyExisted bool            `json:"alreadyExisted"`
	Warning        *ErrorResponse  `json:"warning,omitempty"`
}

// FromCreateResult creates CreateInvoiceResponse from invoice.CreateResult.
func FromCreateResult(res *invoice.CreateResult) CreateInvoiceResponse {
	resp := CreateInvoiceResponse{
		Invoice:        FromInvoice(res.Invoice),
		AlreadyExisted: res.AlreadyExisted,
	}
	if res.Warning != nil {
		resp.Warning = warningResponse(res.Warning)
	}
	return resp
}

func warningResponse(w *apperror.AppError) *ErrorResponse {
	return &ErrorResponse{
		Code:    w.Code,
		Message: w.Message,
		Details: w.Details,
	}
}

// SweepResponse reports a completed overdue sweep.
type SweepResponse struct {
	Transitioned int64 `json:"transitioned"`
}

// FromInvoiceList creates ListResponse from invoice.ListResult.
func FromInvoiceList(res invoice.ListResult) ListResponse {
	items := make([]InvoiceResponse, 0, len(res.Items))
	for _, inv := range res.Items {
		items = append(items, FromInvoice(inv))
	}
	return ListResponse{
		Items:      items,
		TotalCount: res.TotalCount,
		Limit:      res.Limit,
		Offset:     res.Offset,
	}
}
