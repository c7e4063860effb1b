package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gymdesk/internal/core"
)

// ErrRejected wraps exporter errors that retrying the same row cannot fix,
// such as a malformed range or missing permissions.
var ErrRejected = errors.New("export rejected")

// Ports for outbound adapters.
type (
	// LedgerExporter copies committed payments and sales to an external
	// bookkeeping sheet. Appends are idempotent per record ID so redelivered
	// events do not produce duplicate rows.
	LedgerExporter interface {
		AppendPayment(ctx context.Context, p core.Payment, clientName string) (rowRef string, err error)
		AppendSale(ctx context.Context, s core.Sale, productName string) (rowRef string, err error)
	}
)

// Column headers of the exported sheets, in order. The record ID is always
// the last column.
var (
	PaymentHeaders = []string{"Date", "Months", "Client ID", "Client", "Amount", "Method", "Created By", "Payment ID"}
	SaleHeaders    = []string{"Date", "Time", "Product ID", "Product", "Quantity", "Total", "Method", "Created By", "Sale ID"}
)

// PaymentRow renders a payment as one sheet row matching PaymentHeaders.
func PaymentRow(p core.Payment, clientName string) []any {
	months := make([]string, len(p.MonthsCovered))
	for i, m := range p.MonthsCovered {
		months[i] = m.String()
	}
	return []any{
		p.PaymentDate.String(),
		strings.Join(months, ", "),
		p.ClientID,
		clientName,
		Decimal(p.Amount),
		string(p.Method),
		p.CreatedBy,
		p.ID,
	}
}

// SaleRow renders a sale as one sheet row matching SaleHeaders. The sale
// time is written in loc.
func SaleRow(s core.Sale, productName string, loc *time.Location) []any {
	at := s.SaleDate.In(loc)
	return []any{
		at.Format("2006-01-02"),
		at.Format("15:04:05"),
		s.ProductID,
		productName,
		s.Quantity,
		Decimal(s.TotalPrice),
		string(s.Method),
		s.CreatedBy,
		s.ID,
	}
}

// Decimal formats cents as a plain "1234.56" string the sheet parses as a number.
func Decimal(m core.Money) string {
	c := m.Cents
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
