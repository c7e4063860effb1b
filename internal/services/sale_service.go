package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gymdesk/internal/amqp"
	"gymdesk/internal/core"
	"gymdesk/internal/metrics"
	"gymdesk/internal/store"

	"github.com/google/uuid"
)

// SaleStore is what the sale coordinator needs from a backend.
type SaleStore interface {
	store.ProductStore
	store.Transactor
}

// SaleService commits point-of-sale carts. A cart is all-or-nothing: either
// every line decrements its stock and records a sale, or nothing changes.
type SaleService struct {
	store     SaleStore
	principal store.PrincipalProvider
	events    EventPublisher
	metrics   *metrics.Recorder
}

func NewSaleService(st SaleStore, principal store.PrincipalProvider, events EventPublisher, rec *metrics.Recorder) *SaleService {
	return &SaleService{
		store:     st,
		principal: principal,
		events:    events,
		metrics:   rec,
	}
}

// CommitSale validates the cart against current stock and then commits it in
// one transaction. Stock that disappears between validation and commit is
// still reported as a *core.StockError.
func (s *SaleService) CommitSale(ctx context.Context, cart []core.CartLine, method core.PaymentMethod, now time.Time) ([]core.Sale, error) {
	sales, err := s.commit(ctx, cart, method, now)
	if err != nil {
		s.metrics.SaleFailed(err)
		return nil, err
	}

	s.metrics.SaleCommitted(sales)
	s.refreshStock(ctx, sales)
	for _, sale := range sales {
		slog.InfoContext(ctx, "Sale committed",
			"sale_id", sale.ID,
			"product_id", sale.ProductID,
			"quantity", sale.Quantity,
			"amount_cents", sale.TotalPrice.Cents,
			"method", sale.Method)
		publish(ctx, s.events, s.metrics, amqp.NewSaleCommitted(sale))
	}
	return sales, nil
}

func (s *SaleService) commit(ctx context.Context, cart []core.CartLine, method core.PaymentMethod, now time.Time) ([]core.Sale, error) {
	if err := s.validate(ctx, cart, method); err != nil {
		return nil, err
	}
	createdBy, err := s.principal.CurrentPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	var sales []core.Sale
	err = s.store.WithinTx(ctx, func(tx store.Tx) error {
		sales = sales[:0]
		for _, line := range cart {
			product, err := tx.GetProduct(ctx, line.ProductID)
			if err != nil {
				return fmt.Errorf("load product %s: %w", line.ProductID, err)
			}
			if err := tx.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				if errors.Is(err, store.ErrConditionFailed) {
					available := product.StockQuantity
					if current, gerr := tx.GetProduct(ctx, line.ProductID); gerr == nil {
						available = current.StockQuantity
					}
					return &core.StockError{ProductID: line.ProductID, Requested: line.Quantity, Available: available}
				}
				return fmt.Errorf("decrement stock %s: %w", line.ProductID, err)
			}
			sale := core.Sale{
				ID:         uuid.NewString(),
				ProductID:  line.ProductID,
				Quantity:   line.Quantity,
				TotalPrice: product.Price.Times(line.Quantity),
				Method:     method,
				SaleDate:   now,
				CreatedBy:  createdBy,
			}
			if err := tx.InsertSale(ctx, sale); err != nil {
				return fmt.Errorf("insert sale: %w", err)
			}
			sales = append(sales, sale)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sales, nil
}

// validate runs every check that needs no write: shape of the cart, the
// payment method, product existence and aggregate demand per product.
func (s *SaleService) validate(ctx context.Context, cart []core.CartLine, method core.PaymentMethod) error {
	if len(cart) == 0 {
		return core.ErrEmptyCart
	}
	if !method.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidMethod, method)
	}
	demand := make(map[string]int, len(cart))
	for _, line := range cart {
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: product %s quantity %d", core.ErrInvalidQuantity, line.ProductID, line.Quantity)
		}
		if err := core.ValidateStruct(line); err != nil {
			return err
		}
		demand[line.ProductID] += line.Quantity
	}
	for id, qty := range demand {
		product, err := s.store.GetProduct(ctx, id)
		if err != nil {
			return fmt.Errorf("load product %s: %w", id, err)
		}
		if product.StockQuantity < qty {
			return &core.StockError{ProductID: id, Requested: qty, Available: product.StockQuantity}
		}
	}
	return nil
}

// refreshStock updates the stock gauges and warns about products that
// dropped to their restock threshold.
func (s *SaleService) refreshStock(ctx context.Context, sales []core.Sale) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to list products after sale", "error", err)
		return
	}
	s.metrics.SetStock(products)

	sold := make(map[string]bool, len(sales))
	for _, sale := range sales {
		sold[sale.ProductID] = true
	}
	for _, p := range products {
		if sold[p.ID] && p.IsLowStock() {
			slog.WarnContext(ctx, "Product stock is low",
				"product_id", p.ID,
				"name", p.Name,
				"stock", p.StockQuantity,
				"min_stock", p.MinStockLevel)
		}
	}
}
