package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gymdesk/internal/amqp"
	"gymdesk/internal/core"
	"gymdesk/internal/sheets"
	"gymdesk/internal/store"
)

// LedgerSource is what the export worker reads from a backend: names for
// the exported rows and the ledger itself for backfills.
type LedgerSource interface {
	GetClient(ctx context.Context, id string) (core.Client, error)
	GetProduct(ctx context.Context, id string) (core.Product, error)
	ListPaymentsByDateRange(ctx context.Context, from, to core.Date) ([]core.Payment, error)
	ListSalesBetween(ctx context.Context, from, to time.Time) ([]core.Sale, error)
}

// ExportWorker copies ledger events to the bookkeeping sheet.
type ExportWorker struct {
	source   LedgerSource
	exporter sheets.LedgerExporter
}

func NewExportWorker(source LedgerSource, exporter sheets.LedgerExporter) *ExportWorker {
	return &ExportWorker{source: source, exporter: exporter}
}

// HandleEvent exports the record carried by one event. Errors a retry
// cannot fix are marked permanent so the consumer dead-letters the message
// instead of requeueing it.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event", "type", ev.Type, "id", ev.ID)

	var err error
	switch ev.Type {
	case amqp.EventPaymentRecorded:
		if ev.Payment == nil {
			return amqp.Permanent(fmt.Errorf("%w: event %s has no payment", core.ErrInvalidInput, ev.ID))
		}
		err = w.exportPayment(ctx, *ev.Payment)
	case amqp.EventSaleCommitted:
		if ev.Sale == nil {
			return amqp.Permanent(fmt.Errorf("%w: event %s has no sale", core.ErrInvalidInput, ev.ID))
		}
		err = w.exportSale(ctx, *ev.Sale)
	default:
		slog.WarnContext(ctx, "Ignoring unknown ledger event", "type", ev.Type, "id", ev.ID)
		return nil
	}
	if permanent(err) {
		return amqp.Permanent(err)
	}
	return err
}

func permanent(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, sheets.ErrRejected) || core.KindOf(err) == core.KindValidation
}

// Backfill exports every payment and sale in [from, to]. Exports are
// idempotent, so it is safe to run at every worker startup to recover
// events lost while the broker or the worker was down.
func (w *ExportWorker) Backfill(ctx context.Context, from, to core.Date, loc *time.Location) error {
	payments, err := w.source.ListPaymentsByDateRange(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list payments: %w", err)
	}
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	sales, err := w.source.ListSalesBetween(ctx, start, end)
	if err != nil {
		return fmt.Errorf("list sales: %w", err)
	}

	exported, failed := 0, 0
	for _, p := range payments {
		if err := w.exportPayment(ctx, p); err != nil {
			failed++
			continue
		}
		exported++
	}
	for _, s := range sales {
		if err := w.exportSale(ctx, s); err != nil {
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Ledger backfill completed",
		"from", from.String(),
		"to", to.String(),
		"exported", exported,
		"errors", failed)
	if failed > 0 {
		return fmt.Errorf("backfill: %d records failed to export", failed)
	}
	return nil
}

func (w *ExportWorker) exportPayment(ctx context.Context, p core.Payment) error {
	name := p.ClientID
	if c, err := w.source.GetClient(ctx, p.ClientID); err == nil {
		name = c.FullName
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup client: %w", err)
	}

	ref, err := w.exporter.AppendPayment(ctx, p, name)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to export payment", "payment_id", p.ID, "error", err)
		return fmt.Errorf("export payment: %w", err)
	}
	slog.InfoContext(ctx, "Payment exported",
		"payment_id", p.ID,
		"client_id", p.ClientID,
		"amount_cents", p.Amount.Cents,
		"sheets_ref", ref)
	return nil
}

func (w *ExportWorker) exportSale(ctx context.Context, s core.Sale) error {
	name := s.ProductID
	if p, err := w.source.GetProduct(ctx, s.ProductID); err == nil {
		name = p.Name
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup product: %w", err)
	}

	ref, err := w.exporter.AppendSale(ctx, s, name)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to export sale", "sale_id", s.ID, "error", err)
		return fmt.Errorf("export sale: %w", err)
	}
	slog.InfoContext(ctx, "Sale exported",
		"sale_id", s.ID,
		"product_id", s.ProductID,
		"amount_cents", s.TotalPrice.Cents,
		"sheets_ref", ref)
	return nil
}
