package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"gymdesk/internal/core"
	ports "gymdesk/internal/sheets"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const testSpreadsheetID = "sid"

// fakeSheets serves the subset of the Sheets v4 API the exporter uses.
type fakeSheets struct {
	mu           sync.Mutex
	rows         map[string][][]any
	lookups      int
	addSheets    int
	appendStatus int
}

func newFakeSheets(existing ...string) *fakeSheets {
	f := &fakeSheets{rows: make(map[string][][]any)}
	for _, name := range existing {
		f.rows[name] = nil
	}
	return f
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path, ok := strings.CutPrefix(r.URL.Path, "/v4/spreadsheets/"+testSpreadsheetID)
	if !ok {
		writeAPIError(w, http.StatusNotFound, "unknown spreadsheet")
		return
	}

	switch {
	case r.Method == http.MethodGet && path == "":
		f.lookups++
		sheets := make([]*gsheet.Sheet, 0, len(f.rows))
		for title := range f.rows {
			sheets = append(sheets, &gsheet.Sheet{Properties: &gsheet.SheetProperties{Title: title}})
		}
		writeJSON(w, gsheet.Spreadsheet{SpreadsheetId: testSpreadsheetID, Sheets: sheets})

	case r.Method == http.MethodPost && path == ":batchUpdate":
		var req gsheet.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAPIError(w, http.StatusBadRequest, err.Error())
			return
		}
		for _, rq := range req.Requests {
			if rq.AddSheet == nil {
				continue
			}
			title := rq.AddSheet.Properties.Title
			if _, exists := f.rows[title]; exists {
				writeAPIError(w, http.StatusBadRequest, fmt.Sprintf("A sheet with the name %q already exists.", title))
				return
			}
			f.addSheets++
			f.rows[title] = nil
		}
		writeJSON(w, gsheet.BatchUpdateSpreadsheetResponse{SpreadsheetId: testSpreadsheetID})

	case strings.HasPrefix(path, "/values/"):
		rng := strings.TrimPrefix(path, "/values/")
		isAppend := strings.HasSuffix(rng, ":append")
		rng = strings.TrimSuffix(rng, ":append")
		sheet, _, _ := strings.Cut(rng, "!")
		rows, exists := f.rows[sheet]
		if !exists {
			writeAPIError(w, http.StatusBadRequest, "Unable to parse range: "+rng)
			return
		}

		switch {
		case r.Method == http.MethodGet:
			ids := make([][]any, 0, len(rows))
			for _, row := range rows {
				ids = append(ids, []any{row[len(row)-1]})
			}
			writeJSON(w, gsheet.ValueRange{Range: rng, Values: ids})
		case r.Method == http.MethodPut:
			var vr gsheet.ValueRange
			if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
				writeAPIError(w, http.StatusBadRequest, err.Error())
				return
			}
			if len(rows) == 0 {
				f.rows[sheet] = vr.Values
			} else {
				rows[0] = vr.Values[0]
			}
			writeJSON(w, gsheet.UpdateValuesResponse{UpdatedRange: rng})
		case r.Method == http.MethodPost && isAppend:
			if f.appendStatus != 0 {
				writeAPIError(w, f.appendStatus, http.StatusText(f.appendStatus))
				return
			}
			var vr gsheet.ValueRange
			if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
				writeAPIError(w, http.StatusBadRequest, err.Error())
				return
			}
			f.rows[sheet] = append(rows, vr.Values...)
			n := len(f.rows[sheet])
			writeJSON(w, gsheet.AppendValuesResponse{
				Updates: &gsheet.UpdateValuesResponse{UpdatedRange: fmt.Sprintf("%s!A%d", sheet, n)},
			})
		default:
			writeAPIError(w, http.StatusMethodNotAllowed, r.Method)
		}

	default:
		writeAPIError(w, http.StatusNotFound, path)
	}
}

func (f *fakeSheets) sheetRows(name string) [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[name]
}

func (f *fakeSheets) counts() (lookups, added int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups, f.addSheets
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": msg},
	})
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return newClient(svc, testSpreadsheetID, Options{})
}

func TestAppendCreatesMissingYearSheet(t *testing.T) {
	fake := newFakeSheets("2024 Payments")
	c := newTestClient(t, fake)
	ctx := context.Background()
	p := core.Payment{
		ID:            "pay-2025",
		ClientID:      "c1",
		Amount:        core.Money{Cents: 12000},
		PaymentDate:   core.NewDate(2025, 1, 2),
		MonthsCovered: []core.PeriodKey{core.NewPeriod(2025, 1)},
		Method:        core.MethodPix,
	}

	if _, err := c.AppendPayment(ctx, p, "Maria"); err != nil {
		t.Fatalf("AppendPayment: %v", err)
	}
	if _, err := c.AppendPayment(ctx, p, "Maria"); err != nil {
		t.Fatalf("second AppendPayment: %v", err)
	}

	rows := fake.sheetRows("2025 Payments")
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %v", rows)
	}
	if rows[0][0] != ports.PaymentHeaders[0] || rows[0][len(rows[0])-1] != "Payment ID" {
		t.Errorf("unexpected header row %v", rows[0])
	}
	if rows[1][len(rows[1])-1] != "pay-2025" {
		t.Errorf("unexpected data row %v", rows[1])
	}
	lookups, added := fake.counts()
	if added != 1 {
		t.Errorf("added %d sheets, want 1", added)
	}
	if lookups != 1 {
		t.Errorf("sheet list fetched %d times, want 1", lookups)
	}
}

func TestAppendToExistingSheetSkipsCreation(t *testing.T) {
	fake := newFakeSheets("2024 Sales")
	c := newTestClient(t, fake)

	s := core.Sale{ID: "s1", ProductID: "water", Quantity: 1, TotalPrice: core.Money{Cents: 350}, Method: core.MethodCash, SaleDate: core.NewDate(2024, 6, 1).Time}
	if _, err := c.AppendSale(context.Background(), s, "Water"); err != nil {
		t.Fatalf("AppendSale: %v", err)
	}
	if _, added := fake.counts(); added != 0 {
		t.Errorf("existing sheet should not be re-created")
	}
	if rows := fake.sheetRows("2024 Sales"); len(rows) != 1 {
		t.Errorf("expected one row, got %v", rows)
	}
}

func TestAppendErrorClassification(t *testing.T) {
	tests := []struct {
		status   int
		rejected bool
	}{
		{http.StatusForbidden, true},
		{http.StatusBadRequest, true},
		{http.StatusTooManyRequests, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			fake := newFakeSheets("2024 Payments")
			fake.appendStatus = tt.status
			c := newTestClient(t, fake)

			_, err := c.AppendPayment(context.Background(), core.Payment{ID: "p1", PaymentDate: core.NewDate(2024, 3, 1)}, "Maria")
			if err == nil {
				t.Fatal("expected append error")
			}
			if got := errors.Is(err, ports.ErrRejected); got != tt.rejected {
				t.Errorf("rejected = %v, want %v (err=%v)", got, tt.rejected, err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	plain := errors.New("dial tcp: timeout")
	if got := classify(plain); got != plain {
		t.Errorf("non-API errors should pass through, got %v", got)
	}
	if err := classify(&googleapi.Error{Code: http.StatusNotFound}); !errors.Is(err, ports.ErrRejected) {
		t.Errorf("404 should be rejected, got %v", err)
	}
	if err := classify(&googleapi.Error{Code: http.StatusRequestTimeout}); errors.Is(err, ports.ErrRejected) {
		t.Errorf("408 should stay retryable, got %v", err)
	}
}

func TestIsAlreadyExists(t *testing.T) {
	if !isAlreadyExists(&googleapi.Error{Code: http.StatusBadRequest, Message: `A sheet with the name "2025 Sales" already exists.`}) {
		t.Error("duplicate sheet error not recognised")
	}
	if isAlreadyExists(&googleapi.Error{Code: http.StatusBadRequest, Message: "Unable to parse range"}) {
		t.Error("range error taken for duplicate sheet")
	}
}
