package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/shelfwise/internal/invoice/domain"
)

func (s *Server) ListInvoices(c *gin.Context) {
	var req invoicedomain.ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Invoices, "page_info": resp.PageInfo})
}

func (s *Server) GetInvoice(c *gin.Context) {
	inv, err := s.invoiceSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": inv})
}

func (s *Server) RenderInvoicePDF(c *gin.Context) {
	s.renderDocument(c, "invoice", s.invoiceSvc.RenderPDF)
}

func (s *Server) RenderInvoiceReceipt(c *gin.Context) {
	s.renderDocument(c, "receipt", s.invoiceSvc.RenderReceipt)
}

func (s *Server) renderDocument(c *gin.Context, kind string, render func(ctx context.Context, id string) ([]byte, invoicedomain.Invoice, error)) {
	doc, inv, err := render(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("%s-%s.pdf", kind, inv.InvoiceNumber)
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", doc)
}

func (s *Server) RecordPayment(c *gin.Context) {
	var req invoicedomain.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.InvoiceID = c.Param("id")

	inv, evts, err := s.invoiceSvc.RecordPayment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.dispatch(c, evts)

	c.JSON(http.StatusOK, gin.H{"data": inv})
}

func (s *Server) WaiveInvoice(c *gin.Context) {
	var req invoicedomain.WaiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.InvoiceID = c.Param("id")

	inv, evts, err := s.invoiceSvc.Waive(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.dispatch(c, evts)

	c.JSON(http.StatusOK, gin.H{"data": inv})
}
