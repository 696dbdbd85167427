package pdf

import (
	"context"
	"errors"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var ErrMissingInvoiceNumber = errors.New("invoice number is required")

type Library struct {
	Name    string
	Address string
	Email   string
}

type InvoiceDocument struct {
	Library       Library
	InvoiceNumber string
	IssueDate     string
	DueDate       string
	Status        string

	BillToName  string
	BillToEmail string

	// Transaction is nil for membership invoices.
	Transaction *TransactionBox
	Items       []ItemRow

	Total     string
	Paid      string
	AmountDue string
	Overdue   bool
	Notes     string
}

type TransactionBox struct {
	BorrowedDate string
	DueDate      string
	ReturnedDate string
}

type ItemRow struct {
	Book    string
	Overdue string
	Lost    string
	Damage  string
	Total   string
}

type Renderer struct{}

func New() Provider {
	return &Renderer{}
}

func newDocument() core.Maroto {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	return maroto.New(cfg)
}

func (r *Renderer) RenderInvoice(ctx context.Context, doc InvoiceDocument) ([]byte, error) {
	if doc.InvoiceNumber == "" {
		return nil, ErrMissingInvoiceNumber
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := newDocument()

	m.AddRow(12,
		text.NewCol(8, doc.Library.Name, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "INVOICE", props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(22,
		col.New(6).Add(
			text.New(doc.Library.Address, props.Text{Size: 9}),
			text.New(doc.Library.Email, props.Text{Size: 9, Top: 5}),
		),
		col.New(6).Add(
			text.New("Invoice number: "+doc.InvoiceNumber, props.Text{Size: 9, Align: align.Right}),
			text.New("Date of issue: "+doc.IssueDate, props.Text{Size: 9, Top: 5, Align: align.Right}),
			text.New("Date due: "+doc.DueDate, props.Text{Size: 9, Top: 10, Align: align.Right}),
			text.New("Status: "+doc.Status, props.Text{Size: 9, Top: 15, Align: align.Right, Style: fontstyle.Bold}),
		),
	)

	if doc.Overdue {
		m.AddRow(10,
			text.NewCol(12, "OVERDUE: payment was due on "+doc.DueDate, props.Text{
				Size:  11,
				Style: fontstyle.Bold,
				Align: align.Center,
				Color: &props.Color{Red: 200},
			}),
		)
	}

	billTo := col.New(6).Add(
		text.New("Bill to", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.New(doc.BillToName, props.Text{Size: 9, Top: 5}),
		text.New(doc.BillToEmail, props.Text{Size: 9, Top: 10}),
	)
	if doc.Transaction != nil {
		returned := doc.Transaction.ReturnedDate
		if returned == "" {
			returned = "-"
		}
		m.AddRow(22, billTo, col.New(6).Add(
			text.New("Transaction", props.Text{Style: fontstyle.Bold, Size: 10}),
			text.New("Borrowed: "+doc.Transaction.BorrowedDate, props.Text{Size: 9, Top: 5}),
			text.New("Due: "+doc.Transaction.DueDate, props.Text{Size: 9, Top: 10}),
			text.New("Returned: "+returned, props.Text{Size: 9, Top: 15}),
		))
	} else {
		m.AddRow(22, billTo, col.New(6))
	}

	header := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	m.AddRow(8,
		text.NewCol(4, "Book", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Overdue", header),
		text.NewCol(2, "Lost", header),
		text.NewCol(2, "Damage", header),
		text.NewCol(2, "Total", header),
	)
	m.AddRow(2, line.NewCol(12))

	cell := props.Text{Size: 9, Align: align.Right}
	for _, item := range doc.Items {
		m.AddRow(8,
			text.NewCol(4, item.Book, props.Text{Size: 9}),
			text.NewCol(2, item.Overdue, cell),
			text.NewCol(2, item.Lost, cell),
			text.NewCol(2, item.Damage, cell),
			text.NewCol(2, item.Total, cell),
		)
	}
	m.AddRow(2, line.NewCol(12))

	totalRow(m, "Total", doc.Total, false)
	totalRow(m, "Paid", doc.Paid, false)
	totalRow(m, "Amount due", doc.AmountDue, true)

	if doc.Notes != "" {
		m.AddRow(16,
			col.New(12).Add(
				text.New("Notes", props.Text{Style: fontstyle.Bold, Size: 9}),
				text.New(doc.Notes, props.Text{Size: 9, Top: 5}),
			),
		)
	}

	out, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return out.GetBytes(), nil
}

func totalRow(m core.Maroto, label, value string, bold bool) {
	style := fontstyle.Normal
	if bold {
		style = fontstyle.Bold
	}
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, label, props.Text{Size: 9, Style: style}),
		text.NewCol(2, value, props.Text{Size: 9, Style: style, Align: align.Right}),
	)
}
