package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleInvoice() InvoiceDocument {
	return InvoiceDocument{
		Library:       Library{Name: "Shelfwise Library", Email: "desk@example.org"},
		InvoiceNumber: "INV-20240110-000001",
		IssueDate:     "2024-01-10",
		DueDate:       "2024-01-01",
		Status:        "unpaid",
		BillToName:    "Ada Lovelace",
		BillToEmail:   "ada@example.org",
		Transaction: &TransactionBox{
			BorrowedDate: "2023-12-18",
			DueDate:      "2024-01-01",
			ReturnedDate: "2024-01-10",
		},
		Items: []ItemRow{
			{Book: "Dune", Overdue: "$2.25", Lost: "$0.00", Damage: "$0.00", Total: "$2.25"},
		},
		Total:     "$2.25",
		Paid:      "$0.00",
		AmountDue: "$2.25",
		Overdue:   true,
		Notes:     "Returned late",
	}
}

func TestRenderInvoiceProducesPDF(t *testing.T) {
	out, err := New().RenderInvoice(context.Background(), sampleInvoice())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderMembershipInvoiceWithoutTransaction(t *testing.T) {
	doc := sampleInvoice()
	doc.Transaction = nil
	doc.Overdue = false
	doc.Notes = ""

	out, err := New().RenderInvoice(context.Background(), doc)
	require.NoError(t, err)
	require.NotEmpty(t, out)
}

func TestRenderInvoiceRequiresNumber(t *testing.T) {
	doc := sampleInvoice()
	doc.InvoiceNumber = ""

	_, err := New().RenderInvoice(context.Background(), doc)
	require.ErrorIs(t, err, ErrMissingInvoiceNumber)
}

func TestRenderReceipt(t *testing.T) {
	out, err := New().RenderReceipt(context.Background(), ReceiptDocument{
		Library:       Library{Name: "Shelfwise Library"},
		InvoiceNumber: "INV-20240110-000001",
		BillToName:    "Ada Lovelace",
		Payments: []PaymentRow{
			{Date: "2024-01-11", Method: "cash", Amount: "$2.25"},
		},
		Total:     "$2.25",
		Paid:      "$2.25",
		AmountDue: "$0.00",
		Status:    "paid",
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
