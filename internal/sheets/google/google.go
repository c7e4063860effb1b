package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"gymdesk/internal/core"
	ports "gymdesk/internal/sheets"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Options configures the exporter. Sheet names are base names; the year of
// the record is prefixed, e.g. "2024 Payments".
type Options struct {
	SpreadsheetID      string
	PaymentsSheet      string
	SalesSheet         string
	ServiceAccountJSON string
	ServiceAccountFile string
	Location           *time.Location
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	paymentsBase  string
	salesBase     string
	loc           *time.Location

	// sheets that are known to exist, so the lookup runs once per sheet.
	sheetsMu sync.Mutex
	sheets   map[string]bool
}

var _ ports.LedgerExporter = (*Client)(nil)

// NewFromEnv creates a Sheets exporter from environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional sheet names: GOOGLE_PAYMENTS_SHEET (default "Payments"),
// GOOGLE_SALES_SHEET (default "Sales").
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, Options{
		SpreadsheetID:      os.Getenv("GOOGLE_SPREADSHEET_ID"),
		PaymentsSheet:      os.Getenv("GOOGLE_PAYMENTS_SHEET"),
		SalesSheet:         os.Getenv("GOOGLE_SALES_SHEET"),
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	})
}

func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	c := newClient(nil, spreadsheetID, opts)

	svc, err := newSheetsService(ctx, opts.ServiceAccountJSON, opts.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	c.svc = svc
	return c, nil
}

func newClient(svc *gsheet.Service, spreadsheetID string, opts Options) *Client {
	payments := strings.TrimSpace(opts.PaymentsSheet)
	if payments == "" {
		payments = "Payments"
	}
	sales := strings.TrimSpace(opts.SalesSheet)
	if sales == "" {
		sales = "Sales"
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		paymentsBase:  payments,
		salesBase:     sales,
		loc:           loc,
		sheets:        make(map[string]bool),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading service account credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

func (c *Client) AppendPayment(ctx context.Context, p core.Payment, clientName string) (string, error) {
	if p.ID == "" {
		return "", fmt.Errorf("%w: payment without id", core.ErrInvalidInput)
	}
	sheet := yearPrefixedName(c.paymentsBase, p.PaymentDate.Year())
	return c.appendOnce(ctx, sheet, ports.PaymentHeaders, p.ID, ports.PaymentRow(p, clientName))
}

func (c *Client) AppendSale(ctx context.Context, s core.Sale, productName string) (string, error) {
	if s.ID == "" {
		return "", fmt.Errorf("%w: sale without id", core.ErrInvalidInput)
	}
	sheet := yearPrefixedName(c.salesBase, s.SaleDate.In(c.loc).Year())
	return c.appendOnce(ctx, sheet, ports.SaleHeaders, s.ID, ports.SaleRow(s, productName, c.loc))
}

// appendOnce appends row to sheet unless a row with the same ID already
// exists in the ID column, in which case that row's reference is returned.
// A missing sheet is created with its header row first.
func (c *Client) appendOnce(ctx context.Context, sheet string, headers []string, id string, row []any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if err := c.ensureSheet(ctx, sheet, headers); err != nil {
		return "", err
	}
	idCol := columnLetter(len(headers))

	rng := fmt.Sprintf("%s!%s:%s", sheet, idCol, idCol)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rng, classify(err))
	}
	if n := findRowByID(resp.Values, id); n > 0 {
		slog.InfoContext(ctx, "Row already exported", "sheet", sheet, "id", id, "row", n)
		return fmt.Sprintf("%s!A%d:%s%d", sheet, n, idCol, n), nil
	}

	target := fmt.Sprintf("%s!A:%s", sheet, idCol)
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	out, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, target, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", sheet, classify(err))
	}
	if out.Updates != nil && out.Updates.UpdatedRange != "" {
		return out.Updates.UpdatedRange, nil
	}
	return target, nil
}

// ensureSheet creates sheet with a header row when the spreadsheet does not
// have it yet, e.g. on the first record of a new year.
func (c *Client) ensureSheet(ctx context.Context, sheet string, headers []string) error {
	c.sheetsMu.Lock()
	defer c.sheetsMu.Unlock()
	if c.sheets[sheet] {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("list sheets: %w", classify(err))
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			c.sheets[sh.Properties.Title] = true
		}
	}
	if c.sheets[sheet] {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: sheet},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("add sheet %s: %w", sheet, classify(err))
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	headerRange := fmt.Sprintf("%s!A1:%s1", sheet, columnLetter(len(headers)))
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, headerRange, &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, classify(err))
	}

	c.sheets[sheet] = true
	slog.InfoContext(ctx, "Created export sheet", "sheet", sheet)
	return nil
}

// classify marks client errors other than rate limiting as rejected; the
// rest stay retryable.
func classify(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	if gerr.Code >= 400 && gerr.Code < 500 && gerr.Code != http.StatusTooManyRequests && gerr.Code != http.StatusRequestTimeout {
		return fmt.Errorf("%w: %w", ports.ErrRejected, err)
	}
	return err
}

func isAlreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(gerr.Message), "already exists")
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
