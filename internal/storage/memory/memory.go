// Package memory is an in-process store.Store used for development and tests.
// A single mutex guards all data; WithinTx holds it for the whole transaction
// and restores a snapshot when the transaction function fails.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gymdesk/internal/core"
	"gymdesk/internal/store"

	"github.com/google/uuid"
)

type state struct {
	clients    map[string]core.Client
	payments   []core.Payment
	products   map[string]core.Product
	sales      []core.Sale
	staff      map[string]core.Staff
	attendance map[string]core.AttendanceRecord
	access     []core.AccessLog
}

func newState() state {
	return state{
		clients:    make(map[string]core.Client),
		products:   make(map[string]core.Product),
		staff:      make(map[string]core.Staff),
		attendance: make(map[string]core.AttendanceRecord),
	}
}

func (s state) clone() state {
	out := newState()
	for k, v := range s.clients {
		out.clients[k] = v
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.staff {
		out.staff[k] = v
	}
	for k, v := range s.attendance {
		out.attendance[k] = v
	}
	out.payments = append([]core.Payment(nil), s.payments...)
	out.sales = append([]core.Sale(nil), s.sales...)
	out.access = append([]core.AccessLog(nil), s.access...)
	return out
}

type Store struct {
	mu   sync.Mutex
	data state
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: newState()}
}

// NewFromFiles seeds products from base/seed_products.txt. Each line is
// "name;category;price;stock;min_stock" with price as a decimal amount.
func NewFromFiles(base string) *Store {
	s := New()
	for _, line := range readLines(filepath.Join(base, "seed_products.txt")) {
		p, err := parseProductLine(line)
		if err != nil {
			continue
		}
		s.data.products[p.ID] = p
	}
	return s
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

// Clients

func (s *Store) GetClient(_ context.Context, id string) (core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data.clients[id]
	if !ok {
		return core.Client{}, fmt.Errorf("get client %s: %w", id, store.ErrNotFound)
	}
	return c, nil
}

func (s *Store) ListClients(_ context.Context, f store.ClientFilter) ([]core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var out []core.Client
	for _, c := range s.data.clients {
		if q != "" && !strings.Contains(strings.ToLower(c.FullName), q) && !strings.Contains(strings.ToLower(c.Email), q) {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if !f.EnrolledFrom.IsZero() && c.EnrollmentDate.Before(f.EnrolledFrom.Time) {
			continue
		}
		if !f.EnrolledTo.IsZero() && c.EnrollmentDate.After(f.EnrolledTo.Time) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) InsertClient(_ context.Context, c core.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.clients[c.ID]; ok {
		return fmt.Errorf("insert client %s: %w", c.ID, store.ErrDuplicate)
	}
	s.data.clients[c.ID] = c
	return nil
}

func (s *Store) UpdateClientStatus(_ context.Context, id string, status core.ClientStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data.clients[id]
	if !ok {
		return fmt.Errorf("update client status %s: %w", id, store.ErrNotFound)
	}
	c.Status = status
	s.data.clients[id] = c
	return nil
}

// Payments

func (s *Store) InsertPayment(_ context.Context, p core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.clients[p.ClientID]; !ok {
		return fmt.Errorf("insert payment for client %s: %w", p.ClientID, store.ErrNotFound)
	}
	for _, existing := range s.data.payments {
		if existing.ID == p.ID {
			return fmt.Errorf("insert payment %s: %w", p.ID, store.ErrDuplicate)
		}
	}
	p.MonthsCovered = append([]core.PeriodKey(nil), p.MonthsCovered...)
	s.data.payments = append(s.data.payments, p)
	return nil
}

func (s *Store) ListPaymentsByClient(_ context.Context, clientID string) ([]core.Payment, error) {
	return s.filterPayments(func(p core.Payment) bool { return p.ClientID == clientID }), nil
}

func (s *Store) ListPaymentsByDateRange(_ context.Context, from, to core.Date) ([]core.Payment, error) {
	return s.filterPayments(func(p core.Payment) bool {
		return !p.PaymentDate.Before(from.Time) && !p.PaymentDate.After(to.Time)
	}), nil
}

func (s *Store) ListPayments(context.Context) ([]core.Payment, error) {
	return s.filterPayments(func(core.Payment) bool { return true }), nil
}

func (s *Store) filterPayments(keep func(core.Payment) bool) []core.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Payment
	for _, p := range s.data.payments {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaymentDate.Before(out[j].PaymentDate.Time) })
	return out
}

// Products and sales

func (s *Store) GetProduct(_ context.Context, id string) (core.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.product(id)
}

func (d *state) product(id string) (core.Product, error) {
	p, ok := d.products[id]
	if !ok {
		return core.Product{}, fmt.Errorf("get product %s: %w", id, store.ErrNotFound)
	}
	return p, nil
}

func (s *Store) ListProducts(context.Context) ([]core.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Product, 0, len(s.data.products))
	for _, p := range s.data.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) InsertProduct(_ context.Context, p core.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.products[p.ID]; ok {
		return fmt.Errorf("insert product %s: %w", p.ID, store.ErrDuplicate)
	}
	s.data.products[p.ID] = p
	return nil
}

func (s *Store) ListSalesBetween(_ context.Context, from, to time.Time) ([]core.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Sale
	for _, sale := range s.data.sales {
		if !sale.SaleDate.Before(from) && sale.SaleDate.Before(to) {
			out = append(out, sale)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SaleDate.Before(out[j].SaleDate) })
	return out, nil
}

// Staff and attendance

func (s *Store) GetStaff(_ context.Context, id string) (core.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.data.staff[id]
	if !ok {
		return core.Staff{}, fmt.Errorf("get staff %s: %w", id, store.ErrNotFound)
	}
	return st, nil
}

func (s *Store) GetStaffByCode(_ context.Context, code string) (core.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.data.staff {
		if st.StaffCode == code {
			return st, nil
		}
	}
	return core.Staff{}, fmt.Errorf("get staff by code: %w", store.ErrNotFound)
}

func (s *Store) ListStaff(context.Context) ([]core.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Staff, 0, len(s.data.staff))
	for _, st := range s.data.staff {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) InsertStaff(_ context.Context, st core.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.data.staff {
		if existing.ID == st.ID || existing.StaffCode == st.StaffCode {
			return fmt.Errorf("insert staff %s: %w", st.ID, store.ErrDuplicate)
		}
	}
	s.data.staff[st.ID] = st
	return nil
}

func (s *Store) InsertAttendance(_ context.Context, r core.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.staff[r.StaffID]; !ok {
		return fmt.Errorf("insert attendance for staff %s: %w", r.StaffID, store.ErrNotFound)
	}
	for _, existing := range s.data.attendance {
		if existing.ID == r.ID || (existing.StaffID == r.StaffID && existing.Date.Equal(r.Date.Time)) {
			return fmt.Errorf("insert attendance %s: %w", r.ID, store.ErrDuplicate)
		}
	}
	s.data.attendance[r.ID] = r
	return nil
}

func (s *Store) FindAttendance(_ context.Context, staffID string, date core.Date) (core.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.data.attendance {
		if r.StaffID == staffID && r.Date.Equal(date.Time) {
			return r, nil
		}
	}
	return core.AttendanceRecord{}, fmt.Errorf("find attendance: %w", store.ErrNotFound)
}

func (s *Store) ListAttendanceByDate(_ context.Context, date core.Date) ([]core.AttendanceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.AttendanceEntry
	for _, r := range s.data.attendance {
		if !r.Date.Equal(date.Time) {
			continue
		}
		out = append(out, core.AttendanceEntry{AttendanceRecord: r, Staff: s.data.staff[r.StaffID]})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckInTime.Equal(out[j].CheckInTime) {
			return out[i].CheckInTime.Before(out[j].CheckInTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) PurgeAttendanceExcept(_ context.Context, keep core.Date) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.data.attendance {
		if !r.Date.Equal(keep.Time) {
			delete(s.data.attendance, id)
			n++
		}
	}
	return n, nil
}

// Access logs

func (s *Store) InsertAccessLog(_ context.Context, l core.AccessLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.clients[l.ClientID]; !ok {
		return fmt.Errorf("insert access log for client %s: %w", l.ClientID, store.ErrNotFound)
	}
	s.data.access = append(s.data.access, l)
	return nil
}

func (s *Store) ListAccessLogsBetween(_ context.Context, from, to time.Time) ([]core.AccessLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.AccessLog
	for _, l := range s.data.access {
		if !l.Timestamp.Before(from) && l.Timestamp.Before(to) {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// Transactions

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w: %v", store.ErrUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	if err := fn(&memTx{data: &s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// memTx operates on the store's data while the store mutex is held.
type memTx struct {
	data *state
}

func (t *memTx) GetProduct(_ context.Context, id string) (core.Product, error) {
	return t.data.product(id)
}

func (t *memTx) DecrementStock(_ context.Context, productID string, qty int) error {
	p, err := t.data.product(productID)
	if err != nil {
		return err
	}
	if p.StockQuantity < qty {
		return fmt.Errorf("decrement stock %s by %d: %w", productID, qty, store.ErrConditionFailed)
	}
	p.StockQuantity -= qty
	t.data.products[productID] = p
	return nil
}

func (t *memTx) InsertSale(_ context.Context, sale core.Sale) error {
	if _, err := t.data.product(sale.ProductID); err != nil {
		return err
	}
	for _, existing := range t.data.sales {
		if existing.ID == sale.ID {
			return fmt.Errorf("insert sale %s: %w", sale.ID, store.ErrDuplicate)
		}
	}
	t.data.sales = append(t.data.sales, sale)
	return nil
}

func (t *memTx) CountAttendanceByStaff(_ context.Context, staffID string) (int, error) {
	n := 0
	for _, r := range t.data.attendance {
		if r.StaffID == staffID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteAttendanceByStaff(_ context.Context, staffID string) (int64, error) {
	var n int64
	for id, r := range t.data.attendance {
		if r.StaffID == staffID {
			delete(t.data.attendance, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteStaff(_ context.Context, staffID string) error {
	if _, ok := t.data.staff[staffID]; !ok {
		return fmt.Errorf("delete staff %s: %w", staffID, store.ErrNotFound)
	}
	delete(t.data.staff, staffID)
	return nil
}

func parseProductLine(line string) (core.Product, error) {
	parts := strings.Split(line, ";")
	if len(parts) != 5 {
		return core.Product{}, fmt.Errorf("expected 5 fields, got %d", len(parts))
	}
	price, err := core.ParseDecimalToCents(parts[2])
	if err != nil {
		return core.Product{}, err
	}
	stock, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil {
		return core.Product{}, err
	}
	minStock, err := strconv.Atoi(strings.TrimSpace(parts[4]))
	if err != nil {
		return core.Product{}, err
	}
	return core.Product{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(parts[0]),
		Category:      strings.TrimSpace(parts[1]),
		Price:         core.Money{Cents: price},
		StockQuantity: stock,
		MinStockLevel: minStock,
	}, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
