package storage

import (
	"context"
	"fmt"
	"strings"

	"gymdesk/internal/core"
	"gymdesk/internal/store"
)

const clientColumns = `id, full_name, email, phone, enrollment_date, monthly_fee_cents, status, photo_url, created_at`

func (r *SQLiteRepository) GetClient(ctx context.Context, id string) (core.Client, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if err != nil {
		return core.Client{}, mapErr("get client "+id, err)
	}
	return c, nil
}

// ListClients applies the filter in SQL; enrollment bounds are inclusive.
func (r *SQLiteRepository) ListClients(ctx context.Context, f store.ClientFilter) ([]core.Client, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		where = append(where, `(LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?)`)
		args = append(args, "%"+q+"%", "%"+q+"%")
	}
	if f.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, string(f.Status))
	}
	if !f.EnrolledFrom.IsZero() {
		where = append(where, `enrollment_date >= ?`)
		args = append(args, f.EnrolledFrom.String())
	}
	if !f.EnrolledTo.IsZero() {
		where = append(where, `enrollment_date <= ?`)
		args = append(args, f.EnrolledTo.String())
	}

	query := `SELECT ` + clientColumns + ` FROM clients`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY full_name, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr("list clients", err)
	}
	defer rows.Close()

	var out []core.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, mapErr("scan client", err)
		}
		out = append(out, c)
	}
	return out, mapErr("list clients", rows.Err())
}

func (r *SQLiteRepository) InsertClient(ctx context.Context, c core.Client) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (`+clientColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.FullName, c.Email, c.Phone, c.EnrollmentDate.String(), c.MonthlyFee.Cents,
		string(c.Status), c.PhotoURL, formatTimestamp(c.CreatedAt))
	return mapErr("insert client", err)
}

func (r *SQLiteRepository) UpdateClientStatus(ctx context.Context, id string, status core.ClientStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE clients SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return mapErr("update client status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update client status %s: %w", id, store.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(s rowScanner) (core.Client, error) {
	var (
		c          core.Client
		enrollment string
		status     string
		createdAt  string
	)
	if err := s.Scan(&c.ID, &c.FullName, &c.Email, &c.Phone, &enrollment, &c.MonthlyFee.Cents, &status, &c.PhotoURL, &createdAt); err != nil {
		return core.Client{}, err
	}
	d, err := core.ParseDate(enrollment)
	if err != nil {
		return core.Client{}, fmt.Errorf("client %s enrollment date: %w", c.ID, err)
	}
	c.EnrollmentDate = d
	c.Status = core.ClientStatus(status)
	if c.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return core.Client{}, fmt.Errorf("client %s created_at: %w", c.ID, err)
	}
	return c, nil
}

