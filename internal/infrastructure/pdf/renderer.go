// Package pdf renders invoices as PDF documents.
package pdf

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"facturio/internal/core/money"
	"facturio/internal/domain/invoice"
)

// Company identifies the issuing party printed on every document.
type Company struct {
	Name    string
	TaxID   string
	Address string
	Email   string
}

// Renderer builds invoice PDFs. It is stateless and safe for concurrent use.
type Renderer struct {
	company Company
}

// NewRenderer creates a renderer for the given issuing company.
func NewRenderer(company Company) *Renderer {
	return &Renderer{company: company}
}

const dateLayout = "2006-01-02"

// Render produces the PDF bytes for an invoice and its line items.
func (r *Renderer) Render(inv *invoice.Invoice) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Invoice "+inv.DisplayNumber(), props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	dueDate := "-"
	if inv.DueDate != nil {
		dueDate = inv.DueDate.Format(dateLayout)
	}
	m.AddRow(18,
		col.New(6).Add(
			text.New("Date of issue: "+inv.CreatedAt.Format(dateLayout), props.Text{Top: 0}),
			text.New("Date due: "+dueDate, props.Text{Top: 4}),
			text.New("Status: "+string(inv.Status), props.Text{Top: 8}),
		),
		col.New(6),
	)

	m.AddRow(35,
		col.New(6).Add(
			text.New(r.company.Name, props.Text{Style: fontstyle.Bold}),
			text.New(r.company.Address, props.Text{Top: 5}),
			text.New("Tax ID: "+r.company.TaxID, props.Text{Top: 10}),
			text.New(r.company.Email, props.Text{Top: 15}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(inv.BillToName, props.Text{Top: 5}),
			text.New("Tax ID: "+inv.BillToTaxID, props.Text{Top: 10}),
		),
	)

	m.AddRow(10,
		text.NewCol(6, "Item", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range inv.Items {
		m.AddRow(8,
			text.NewCol(6, item.VariantID.String(), props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", item.Qty), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money.Format(item.PriceCents), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money.Format(item.TotalCents()), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(12,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(2, money.FormatWithCurrency(inv.TotalCents, inv.Currency), props.Text{
			Style: fontstyle.Bold,
			Size:  10,
			Align: align.Right,
		}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}

	return doc.GetBytes(), nil
}
