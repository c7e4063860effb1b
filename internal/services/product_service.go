package services

import (
	"context"
	"fmt"
	"log/slog"

	"gymdesk/internal/core"
	"gymdesk/internal/metrics"
	"gymdesk/internal/store"

	"github.com/google/uuid"
)

type ProductService struct {
	store   store.ProductStore
	metrics *metrics.Recorder
}

func NewProductService(st store.ProductStore, rec *metrics.Recorder) *ProductService {
	return &ProductService{store: st, metrics: rec}
}

func (s *ProductService) Create(ctx context.Context, in core.NewProduct) (core.Product, error) {
	if err := in.Validate(); err != nil {
		return core.Product{}, err
	}
	p := core.Product{
		ID:            uuid.NewString(),
		Name:          in.Name,
		Category:      in.Category,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		MinStockLevel: in.MinStockLevel,
	}
	if err := s.store.InsertProduct(ctx, p); err != nil {
		return core.Product{}, fmt.Errorf("insert product: %w", err)
	}
	slog.InfoContext(ctx, "Product created", "product_id", p.ID, "stock", p.StockQuantity)
	return p, nil
}

// List returns every product and refreshes the stock gauges.
func (s *ProductService) List(ctx context.Context) ([]core.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.SetStock(products)
	return products, nil
}

// LowStock returns products at or below their restock threshold.
func (s *ProductService) LowStock(ctx context.Context) ([]core.Product, error) {
	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return lowStock(products), nil
}
