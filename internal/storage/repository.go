package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gymdesk/internal/core"
	"gymdesk/internal/store"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timestampLayout is fixed width so stored timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteRepository implements store.Store on a single SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

// DSN builds the connection string used for dbPath.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	if err := RunMigrations(dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer connection; stock decrements and attendance inserts serialize here.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite store ready", "path", dbPath)
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return mapErr("ping", err)
	}
	return nil
}

// WithinTx implements store.Transactor.
func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr("begin transaction", err)
	}
	if err := fn(&sqliteTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapErr("commit transaction", err)
	}
	return nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) GetProduct(ctx context.Context, id string) (core.Product, error) {
	return getProduct(ctx, t.tx, id)
}

func (t *sqliteTx) DecrementStock(ctx context.Context, productID string, qty int) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE products SET stock_quantity = stock_quantity - ? WHERE id = ? AND stock_quantity >= ?`,
		qty, productID, qty)
	if err != nil {
		return mapErr("decrement stock", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr("decrement stock", err)
	}
	if n == 0 {
		return fmt.Errorf("decrement stock %s by %d: %w", productID, qty, store.ErrConditionFailed)
	}
	return nil
}

func (t *sqliteTx) InsertSale(ctx context.Context, s core.Sale) error {
	return insertSale(ctx, t.tx, s)
}

func (t *sqliteTx) CountAttendanceByStaff(ctx context.Context, staffID string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM staff_attendance WHERE staff_id = ?`, staffID).Scan(&n)
	if err != nil {
		return 0, mapErr("count attendance", err)
	}
	return n, nil
}

func (t *sqliteTx) DeleteAttendanceByStaff(ctx context.Context, staffID string) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM staff_attendance WHERE staff_id = ?`, staffID)
	if err != nil {
		return 0, mapErr("delete attendance", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (t *sqliteTx) DeleteStaff(ctx context.Context, staffID string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM staff WHERE id = ?`, staffID)
	if err != nil {
		return mapErr("delete staff", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete staff %s: %w", staffID, store.ErrNotFound)
	}
	return nil
}

// mapErr translates driver errors into store errors.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %v", op, store.ErrUnavailable, err)
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%s: %w", op, store.ErrDuplicate)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%s: %w: %v", op, store.ErrNotFound, err)
		}
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%s: %w: %v", op, store.ErrUnavailable, err)
		}
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", op, store.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
