// Package store declares the persistence ports the gym services depend on.
// Implementations live in internal/storage (SQLite) and
// internal/storage/memory.
package store

import (
	"context"
	"fmt"
	"gymdesk/internal/core"
	"time"
)

var (
	ErrNotFound        = core.ErrNotFound
	ErrDuplicate       = fmt.Errorf("%w: duplicate record", core.ErrConflict)
	ErrConditionFailed = fmt.Errorf("%w: update condition not met", core.ErrConflict)
	ErrUnavailable     = core.ErrUnavailable
)

// ClientFilter narrows ListClients. Zero fields match everything.
type ClientFilter struct {
	Query        string
	Status       core.ClientStatus
	EnrolledFrom core.Date
	EnrolledTo   core.Date
}

type (
	ClientStore interface {
		GetClient(ctx context.Context, id string) (core.Client, error)
		ListClients(ctx context.Context, f ClientFilter) ([]core.Client, error)
		InsertClient(ctx context.Context, c core.Client) error
		UpdateClientStatus(ctx context.Context, id string, status core.ClientStatus) error
	}

	PaymentStore interface {
		InsertPayment(ctx context.Context, p core.Payment) error
		ListPaymentsByClient(ctx context.Context, clientID string) ([]core.Payment, error)
		// ListPaymentsByDateRange returns payments collected between from and to inclusive.
		ListPaymentsByDateRange(ctx context.Context, from, to core.Date) ([]core.Payment, error)
		ListPayments(ctx context.Context) ([]core.Payment, error)
	}

	ProductStore interface {
		GetProduct(ctx context.Context, id string) (core.Product, error)
		ListProducts(ctx context.Context) ([]core.Product, error)
		InsertProduct(ctx context.Context, p core.Product) error
	}

	SaleStore interface {
		// ListSalesBetween returns sales with from <= sale_date < to.
		ListSalesBetween(ctx context.Context, from, to time.Time) ([]core.Sale, error)
	}

	StaffStore interface {
		GetStaff(ctx context.Context, id string) (core.Staff, error)
		GetStaffByCode(ctx context.Context, code string) (core.Staff, error)
		ListStaff(ctx context.Context) ([]core.Staff, error)
		InsertStaff(ctx context.Context, s core.Staff) error
	}

	AttendanceStore interface {
		// InsertAttendance returns ErrDuplicate when (staff, date) already exists.
		InsertAttendance(ctx context.Context, r core.AttendanceRecord) error
		FindAttendance(ctx context.Context, staffID string, date core.Date) (core.AttendanceRecord, error)
		ListAttendanceByDate(ctx context.Context, date core.Date) ([]core.AttendanceEntry, error)
		// PurgeAttendanceExcept deletes every record whose date differs from keep.
		PurgeAttendanceExcept(ctx context.Context, keep core.Date) (int64, error)
	}

	AccessLogStore interface {
		InsertAccessLog(ctx context.Context, l core.AccessLog) error
		ListAccessLogsBetween(ctx context.Context, from, to time.Time) ([]core.AccessLog, error)
	}

	// Tx is the set of writes that must commit or roll back together.
	Tx interface {
		GetProduct(ctx context.Context, id string) (core.Product, error)
		// DecrementStock subtracts qty only if the current stock covers it,
		// otherwise it returns ErrConditionFailed and changes nothing.
		DecrementStock(ctx context.Context, productID string, qty int) error
		InsertSale(ctx context.Context, s core.Sale) error
		CountAttendanceByStaff(ctx context.Context, staffID string) (int, error)
		DeleteAttendanceByStaff(ctx context.Context, staffID string) (int64, error)
		DeleteStaff(ctx context.Context, staffID string) error
	}

	Transactor interface {
		// WithinTx runs fn in a transaction. A non-nil error from fn rolls
		// everything back and is returned unchanged.
		WithinTx(ctx context.Context, fn func(tx Tx) error) error
	}

	// Store is everything a backend provides.
	Store interface {
		ClientStore
		PaymentStore
		ProductStore
		SaleStore
		StaffStore
		AttendanceStore
		AccessLogStore
		Transactor
		Ping(ctx context.Context) error
		Close() error
	}
)
