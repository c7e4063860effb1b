package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidMethod   = errors.New("invalid payment method")
	ErrInvalidPeriod   = errors.New("invalid period key")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrEmptyMonths     = errors.New("months covered cannot be empty")
	ErrDuplicateMonth  = errors.New("month listed more than once")

	ErrConflict            = errors.New("conflict")
	ErrInsufficientStock   = fmt.Errorf("%w: insufficient stock", ErrConflict)
	ErrAlreadyCheckedIn    = fmt.Errorf("%w: already checked in today", ErrConflict)
	ErrDuplicateStaffCode  = fmt.Errorf("%w: staff code already in use", ErrConflict)
	ErrReferencedByHistory = fmt.Errorf("%w: record is referenced by history", ErrConflict)

	ErrNotFound    = errors.New("not found")
	ErrUnknownCode = fmt.Errorf("%w: unknown staff code", ErrNotFound)

	ErrUnavailable = errors.New("store unavailable")
)

// Kind groups errors by how a caller should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

var validationErrors = []error{
	ErrInvalidAmount, ErrInvalidDate, ErrInvalidMethod, ErrInvalidPeriod, ErrInvalidInput,
	ErrInvalidQuantity, ErrEmptyCart, ErrEmptyMonths, ErrDuplicateMonth,
}

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return KindValidation
		}
	}
	switch {
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	default:
		return KindInternal
	}
}

// StockError reports a product that cannot cover the requested quantity.
type StockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("product %s: requested %d, available %d: %v", e.ProductID, e.Requested, e.Available, ErrInsufficientStock)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }
