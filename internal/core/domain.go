package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

const (
	ClientActive    ClientStatus = "active"
	ClientLate      ClientStatus = "late"
	ClientSuspended ClientStatus = "suspended"
	ClientCancelled ClientStatus = "cancelled"
)

const (
	MethodCash     PaymentMethod = "cash"
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "transfer"
	MethodPix      PaymentMethod = "pix"
)

const (
	StatusNotApplicable MonthStatus = "not-applicable"
	StatusPaid          MonthStatus = "paid"
	StatusOverdue       MonthStatus = "overdue"
	StatusUpcoming      MonthStatus = "upcoming"
)

const AttendancePresent = "present"

type (
	ClientStatus  string
	PaymentMethod string
	MonthStatus   string

	// Date is a calendar day. The time part is always midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Client struct {
		ID             string       `json:"id"`
		FullName       string       `json:"full_name"`
		Email          string       `json:"email"`
		Phone          string       `json:"phone"`
		EnrollmentDate Date         `json:"enrollment_date"`
		MonthlyFee     Money        `json:"monthly_fee"`
		Status         ClientStatus `json:"status"`
		PhotoURL       string       `json:"photo_url,omitempty"`
		CreatedAt      time.Time    `json:"created_at"`
	}

	// Payment is immutable once stored; corrections are new payments.
	Payment struct {
		ID            string        `json:"id"`
		ClientID      string        `json:"client_id"`
		Amount        Money         `json:"amount"`
		PaymentDate   Date          `json:"payment_date"`
		MonthsCovered []PeriodKey   `json:"months_covered"`
		Method        PaymentMethod `json:"method"`
		CreatedBy     string        `json:"created_by"`
		CreatedAt     time.Time     `json:"created_at"`
	}

	Product struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Category      string `json:"category"`
		Price         Money  `json:"price"`
		StockQuantity int    `json:"stock_quantity"`
		MinStockLevel int    `json:"min_stock_level"`
	}

	Sale struct {
		ID         string        `json:"id"`
		ProductID  string        `json:"product_id"`
		Quantity   int           `json:"quantity"`
		TotalPrice Money         `json:"total_price"`
		Method     PaymentMethod `json:"method"`
		SaleDate   time.Time     `json:"sale_date"`
		CreatedBy  string        `json:"created_by"`
	}

	Staff struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Role      string `json:"role"`
		StaffCode string `json:"staff_code"`
		Schedule  string `json:"schedule"`
		Salary    Money  `json:"salary"`
	}

	AttendanceRecord struct {
		ID          string    `json:"id"`
		StaffID     string    `json:"staff_id"`
		Date        Date      `json:"date"`
		CheckInTime time.Time `json:"check_in_time"`
		Status      string    `json:"status"`
	}

	// AttendanceEntry is an attendance record joined with its staff member.
	AttendanceEntry struct {
		AttendanceRecord
		Staff Staff `json:"staff"`
	}

	AccessLog struct {
		ID        string    `json:"id"`
		ClientID  string    `json:"client_id"`
		Timestamp time.Time `json:"timestamp"`
		AdminID   string    `json:"admin_id"`
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as seen in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// Period returns the billing month containing d.
func (d Date) Period() PeriodKey {
	return PeriodOf(d.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (s ClientStatus) Valid() bool {
	switch s {
	case ClientActive, ClientLate, ClientSuspended, ClientCancelled:
		return true
	default:
		return false
	}
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodPix:
		return true
	default:
		return false
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Times returns m multiplied by a quantity.
func (m Money) Times(qty int) Money {
	return Money{Cents: m.Cents * int64(qty)}
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Split divides m into n parts; the remainder cents go to the first parts
// so the parts always sum back to m.
func (m Money) Split(n int) []Money {
	if n <= 0 {
		return nil
	}
	parts := make([]Money, n)
	base := m.Cents / int64(n)
	rem := m.Cents % int64(n)
	for i := range parts {
		parts[i] = Money{Cents: base}
		if int64(i) < rem {
			parts[i].Cents++
		}
	}
	return parts
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Cents)
}

func (m *Money) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &m.Cents)
}

// Covers reports whether the payment pays for the given month.
func (p Payment) Covers(k PeriodKey) bool {
	for _, m := range p.MonthsCovered {
		if m == k {
			return true
		}
	}
	return false
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.ClientID) == "" {
		return fmt.Errorf("%w: client id is required", ErrInvalidInput)
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if err := p.PaymentDate.Validate(); err != nil {
		return err
	}
	if !p.Method.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMethod, p.Method)
	}
	return ValidateMonths(p.MonthsCovered)
}

// ValidateMonths checks that a months_covered set is non-empty and has no repeats.
func ValidateMonths(months []PeriodKey) error {
	if len(months) == 0 {
		return ErrEmptyMonths
	}
	seen := make(map[PeriodKey]struct{}, len(months))
	for _, m := range months {
		if !m.Valid() {
			return fmt.Errorf("%w: %s", ErrInvalidPeriod, m)
		}
		if _, ok := seen[m]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateMonth, m)
		}
		seen[m] = struct{}{}
	}
	return nil
}

// IsLowStock reports whether the product is at or below its restock threshold.
func (p Product) IsLowStock() bool {
	return p.StockQuantity <= p.MinStockLevel
}

// Receipt is the plain data handed to the document renderer after a payment.
type Receipt struct {
	PaymentID  string        `json:"payment_id"`
	Number     string        `json:"number"`
	ClientName string        `json:"client_name"`
	Date       Date          `json:"date"`
	Method     PaymentMethod `json:"method"`
	Lines      []ReceiptLine `json:"lines"`
	Total      Money         `json:"total"`
}

type ReceiptLine struct {
	Period PeriodKey `json:"period"`
	Amount Money     `json:"amount"`
}

// NewReceipt prorates the payment amount across the months it covers.
func NewReceipt(p Payment, c Client) Receipt {
	number := strings.ToUpper(p.ID)
	if len(number) > 8 {
		number = number[:8]
	}
	r := Receipt{
		PaymentID:  p.ID,
		Number:     number,
		ClientName: c.FullName,
		Date:       p.PaymentDate,
		Method:     p.Method,
		Total:      p.Amount,
	}
	parts := p.Amount.Split(len(p.MonthsCovered))
	for i, m := range p.MonthsCovered {
		r.Lines = append(r.Lines, ReceiptLine{Period: m, Amount: parts[i]})
	}
	return r
}
