package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"gymdesk/internal/core"
)

const paymentColumns = `id, client_id, amount_cents, payment_date, months_covered, method, created_by, created_at`

// InsertPayment stores months_covered as a JSON array of "YYYY-MM" strings.
func (r *SQLiteRepository) InsertPayment(ctx context.Context, p core.Payment) error {
	months, err := json.Marshal(p.MonthsCovered)
	if err != nil {
		return fmt.Errorf("encode months covered: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ClientID, p.Amount.Cents, p.PaymentDate.String(), string(months),
		string(p.Method), p.CreatedBy, formatTimestamp(p.CreatedAt))
	return mapErr("insert payment", err)
}

func (r *SQLiteRepository) ListPaymentsByClient(ctx context.Context, clientID string) ([]core.Payment, error) {
	return r.queryPayments(ctx, `WHERE client_id = ?`, clientID)
}

func (r *SQLiteRepository) ListPaymentsByDateRange(ctx context.Context, from, to core.Date) ([]core.Payment, error) {
	return r.queryPayments(ctx, `WHERE payment_date >= ? AND payment_date <= ?`, from.String(), to.String())
}

func (r *SQLiteRepository) ListPayments(ctx context.Context) ([]core.Payment, error) {
	return r.queryPayments(ctx, ``)
}

func (r *SQLiteRepository) queryPayments(ctx context.Context, where string, args ...any) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments `+where+` ORDER BY payment_date, created_at`, args...)
	if err != nil {
		return nil, mapErr("list payments", err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		var (
			p         core.Payment
			paidOn    string
			months    string
			method    string
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Amount.Cents, &paidOn, &months, &method, &p.CreatedBy, &createdAt); err != nil {
			return nil, mapErr("scan payment", err)
		}
		if p.PaymentDate, err = core.ParseDate(paidOn); err != nil {
			return nil, fmt.Errorf("payment %s date: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(months), &p.MonthsCovered); err != nil {
			return nil, fmt.Errorf("payment %s months covered: %w", p.ID, err)
		}
		if p.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("payment %s created_at: %w", p.ID, err)
		}
		p.Method = core.PaymentMethod(method)
		out = append(out, p)
	}
	return out, mapErr("list payments", rows.Err())
}
