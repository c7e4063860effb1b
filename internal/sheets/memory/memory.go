package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gymdesk/internal/core"
	ports "gymdesk/internal/sheets"
)

// Exporter keeps exported rows in memory. It backs development runs without
// Google credentials and the worker tests.
type Exporter struct {
	mu       sync.Mutex
	loc      *time.Location
	payments [][]any
	sales    [][]any
	seen     map[string]string
}

var _ ports.LedgerExporter = (*Exporter)(nil)

func New(loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{loc: loc, seen: make(map[string]string)}
}

// AppendPayment stores the row and returns a synthetic row reference.
func (e *Exporter) AppendPayment(_ context.Context, p core.Payment, clientName string) (string, error) {
	if p.ID == "" {
		return "", fmt.Errorf("%w: payment without id", core.ErrInvalidInput)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if ref, ok := e.seen["payment:"+p.ID]; ok {
		return ref, nil
	}
	e.payments = append(e.payments, ports.PaymentRow(p, clientName))
	ref := fmt.Sprintf("mem:payments:%d", len(e.payments))
	e.seen["payment:"+p.ID] = ref
	return ref, nil
}

func (e *Exporter) AppendSale(_ context.Context, s core.Sale, productName string) (string, error) {
	if s.ID == "" {
		return "", fmt.Errorf("%w: sale without id", core.ErrInvalidInput)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if ref, ok := e.seen["sale:"+s.ID]; ok {
		return ref, nil
	}
	e.sales = append(e.sales, ports.SaleRow(s, productName, e.loc))
	ref := fmt.Sprintf("mem:sales:%d", len(e.sales))
	e.seen["sale:"+s.ID] = ref
	return ref, nil
}

// PaymentRows returns a copy of the exported payment rows.
func (e *Exporter) PaymentRows() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]any(nil), e.payments...)
}

func (e *Exporter) SaleRows() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]any(nil), e.sales...)
}
