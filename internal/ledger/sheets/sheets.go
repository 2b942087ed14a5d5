// Package sheets keeps the transaction ledger in a Google Sheets tab.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"household/internal/core"
	"household/internal/ledger"
)

// Options selects the spreadsheet and the credentials used to reach it.
type Options struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// mu serializes lookups and writes so two events for the same id
	// cannot both append a row.
	mu      sync.Mutex
	sheetID *int64
}

var _ ledger.Ledger = (*Client)(nil)

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Transactions"
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: opts.SpreadsheetID, sheetName: sheetName}, nil
}

// newSheetsService authenticates with a service account, preferring inline
// JSON over a credentials file.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(opts.ServiceAccountJSON) != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(opts.ServiceAccountJSON)
	case strings.TrimSpace(opts.ServiceAccountFile) != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", opts.ServiceAccountFile)
		data, err := os.ReadFile(opts.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Upsert rewrites the row holding tx.ID, or appends one when there is none.
func (c *Client) Upsert(ctx context.Context, tx core.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		header := &gsheet.ValueRange{Values: [][]any{toAny(ledger.Header)}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1(c.sheetName, "A1"), header).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("write header in %s: %w", c.sheetName, err)
		}
		ids = [][]any{{ledger.Header[0]}}
	}

	values := &gsheet.ValueRange{Values: [][]any{rowValues(tx)}}
	if row := findRow(ids, tx.ID); row > 0 {
		rng := a1(c.sheetName, fmt.Sprintf("A%d:I%d", row, row))
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, values).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		slog.InfoContext(ctx, "Ledger row updated", "transaction_id", tx.ID, "row", row)
		return nil
	}

	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, a1(c.sheetName, "A:I"), values).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do(); err != nil {
		return fmt.Errorf("append to %s: %w", c.sheetName, err)
	}
	slog.InfoContext(ctx, "Ledger row appended", "transaction_id", tx.ID, "amount_cents", tx.Amount.Cents)
	return nil
}

// Delete removes the row holding id.
func (c *Client) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	row := findRow(ids, id)
	if row < 0 {
		slog.InfoContext(ctx, "Ledger row already absent", "transaction_id", id)
		return nil
	}

	sheetID, err := c.lookupSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in %s: %w", row, c.sheetName, err)
	}
	slog.InfoContext(ctx, "Ledger row deleted", "transaction_id", id, "row", row)
	return nil
}

func (c *Client) readIDs(ctx context.Context) ([][]any, error) {
	rng := a1(c.sheetName, "A:A")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet properties: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			id := sh.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}

// findRow returns the 1-based row whose first cell equals id, or -1.
// Row 1 is the header and never matches.
func findRow(values [][]any, id string) int {
	for i, row := range values {
		if i == 0 || len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return -1
}

// rowValues is ledger.Row with the amount as a number so the sheet can sum it.
func rowValues(tx core.Transaction) []any {
	row := toAny(ledger.Row(tx))
	row[3] = tx.Amount.Decimal().InexactFloat64()
	return row
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// a1 quotes the sheet name for A1 notation.
func a1(sheet, rng string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + rng
}
