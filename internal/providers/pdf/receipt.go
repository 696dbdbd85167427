package pdf

import (
	"context"

	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// ReceiptDocument lists the payments recorded against one invoice.
type ReceiptDocument struct {
	Library       Library
	InvoiceNumber string
	BillToName    string
	Payments      []PaymentRow
	Total         string
	Paid          string
	AmountDue     string
	Status        string
}

type PaymentRow struct {
	Date      string
	Method    string
	Reference string
	Amount    string
}

func (r *Renderer) RenderReceipt(ctx context.Context, doc ReceiptDocument) ([]byte, error) {
	if doc.InvoiceNumber == "" {
		return nil, ErrMissingInvoiceNumber
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := newDocument()

	m.AddRow(12,
		text.NewCol(8, doc.Library.Name, props.Text{Size: 18, Style: fontstyle.Bold}),
		text.NewCol(4, "RECEIPT", props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(16,
		col.New(6).Add(
			text.New("Received from", props.Text{Style: fontstyle.Bold, Size: 10}),
			text.New(doc.BillToName, props.Text{Size: 9, Top: 5}),
		),
		col.New(6).Add(
			text.New("Invoice number: "+doc.InvoiceNumber, props.Text{Size: 9, Align: align.Right}),
			text.New("Status: "+doc.Status, props.Text{Size: 9, Top: 5, Align: align.Right}),
		),
	)

	m.AddRow(8,
		text.NewCol(3, "Date", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Method", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Reference", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))
	for _, p := range doc.Payments {
		m.AddRow(8,
			text.NewCol(3, p.Date, props.Text{Size: 9}),
			text.NewCol(3, p.Method, props.Text{Size: 9}),
			text.NewCol(4, p.Reference, props.Text{Size: 9}),
			text.NewCol(2, p.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(2, line.NewCol(12))

	totalRow(m, "Invoice total", doc.Total, false)
	totalRow(m, "Paid", doc.Paid, true)
	totalRow(m, "Balance", doc.AmountDue, false)

	out, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return out.GetBytes(), nil
}
