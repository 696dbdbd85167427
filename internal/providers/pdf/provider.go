package pdf

import (
	"context"
)

// Provider renders invoice documents. Money values arrive preformatted.
type Provider interface {
	RenderInvoice(ctx context.Context, doc InvoiceDocument) ([]byte, error)
	RenderReceipt(ctx context.Context, doc ReceiptDocument) ([]byte, error)
}
