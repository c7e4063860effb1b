package storage

import (
	"context"
	"fmt"
	"time"

	"gymdesk/internal/core"
)

const (
	productColumns = `id, name, category, price_cents, stock_quantity, min_stock_level`
	saleColumns    = `id, product_id, quantity, total_price_cents, method, sale_date, created_by`
)

func (r *SQLiteRepository) GetProduct(ctx context.Context, id string) (core.Product, error) {
	return getProduct(ctx, r.db, id)
}

func getProduct(ctx context.Context, q querier, id string) (core.Product, error) {
	var p core.Product
	err := q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Category, &p.Price.Cents, &p.StockQuantity, &p.MinStockLevel)
	if err != nil {
		return core.Product{}, mapErr("get product "+id, err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListProducts(ctx context.Context) ([]core.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
	if err != nil {
		return nil, mapErr("list products", err)
	}
	defer rows.Close()

	var out []core.Product
	for rows.Next() {
		var p core.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price.Cents, &p.StockQuantity, &p.MinStockLevel); err != nil {
			return nil, mapErr("scan product", err)
		}
		out = append(out, p)
	}
	return out, mapErr("list products", rows.Err())
}

func (r *SQLiteRepository) InsertProduct(ctx context.Context, p core.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Category, p.Price.Cents, p.StockQuantity, p.MinStockLevel)
	return mapErr("insert product", err)
}

func insertSale(ctx context.Context, q querier, s core.Sale) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO sales (`+saleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ProductID, s.Quantity, s.TotalPrice.Cents, string(s.Method), formatTimestamp(s.SaleDate), s.CreatedBy)
	return mapErr("insert sale", err)
}

func (r *SQLiteRepository) ListSalesBetween(ctx context.Context, from, to time.Time) ([]core.Sale, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE sale_date >= ? AND sale_date < ? ORDER BY sale_date, id`,
		formatTimestamp(from), formatTimestamp(to))
	if err != nil {
		return nil, mapErr("list sales", err)
	}
	defer rows.Close()

	var out []core.Sale
	for rows.Next() {
		var (
			s      core.Sale
			method string
			soldAt string
		)
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Quantity, &s.TotalPrice.Cents, &method, &soldAt, &s.CreatedBy); err != nil {
			return nil, mapErr("scan sale", err)
		}
		if s.SaleDate, err = parseTimestamp(soldAt); err != nil {
			return nil, fmt.Errorf("sale %s date: %w", s.ID, err)
		}
		s.Method = core.PaymentMethod(method)
		out = append(out, s)
	}
	return out, mapErr("list sales", rows.Err())
}
