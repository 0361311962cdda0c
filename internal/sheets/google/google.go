package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"finanzas/internal/core"
	ports "finanzas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultSheetName      = "Transacciones"
	defaultCacheValidity  = 2 * time.Minute
	mirrorColumns         = "A:G"
	valueInputUserEntered = "USER_ENTERED"
)

// Client mirrors transactions into one tab of a spreadsheet. Column A holds
// the transaction id and is used to find a row again.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	loc           *time.Location

	mu                 sync.Mutex
	sheetID            *int64
	cachedIDs          []string
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

var _ ports.TransactionMirror = (*Client)(nil)

// New creates a Sheets client authenticated with a service account taken
// from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS. Dates are written in loc.
func New(ctx context.Context, spreadsheetID, sheetName string, loc *time.Location) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, spreadsheetID, sheetName, loc), nil
}

func newClient(svc *gsheet.Service, spreadsheetID, sheetName string, loc *time.Location) *Client {
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetName:          sheetName,
		loc:                loc,
		cacheValidDuration: defaultCacheValidity,
	}
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := serviceAccountCredentials()
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func serviceAccountCredentials() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

// UpsertTransaction implements ports.TransactionMirror.
func (c *Client) UpsertTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", errors.New("transaction has no id")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	ids, err := c.rowIDs(ctx)
	if err != nil {
		return "", err
	}
	values := &gsheet.ValueRange{Values: [][]any{transactionRow(t, c.loc)}}

	if row := findRow(ids, t.ID); row > 0 {
		rng := fmt.Sprintf("%s!A%d:G%d", c.sheetName, row, row)
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, values).
			ValueInputOption(valueInputUserEntered).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("update %s: %w", rng, err)
		}
		return rng, nil
	}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.sheetName+"!"+mirrorColumns, values).
		ValueInputOption(valueInputUserEntered).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		c.InvalidateRowCache()
		return "", fmt.Errorf("append to %s: %w", c.sheetName, err)
	}

	c.mu.Lock()
	if time.Now().Before(c.cacheExpiresAt) {
		c.cachedIDs = append(c.cachedIDs, t.ID)
	}
	c.mu.Unlock()

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// DeleteTransaction implements ports.TransactionMirror.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	ids, err := c.rowIDs(ctx)
	if err != nil {
		return err
	}
	row := findRow(ids, id)
	if row <= 0 {
		slog.DebugContext(ctx, "No mirrored row to delete", "id", id, "sheet", c.sheetName)
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
	// Row numbers shift after a delete.
	defer c.InvalidateRowCache()
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in %s: %w", row, c.sheetName, err)
	}
	return nil
}

// rowIDs returns column A of the mirror tab, served from a short-lived cache.
func (c *Client) rowIDs(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	if time.Now().Before(c.cacheExpiresAt) {
		ids := append([]string(nil), c.cachedIDs...)
		c.mu.Unlock()
		return ids, nil
	}
	c.mu.Unlock()

	rng := c.sheetName + "!A:A"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	ids := firstColumn(resp.Values)

	c.mu.Lock()
	c.cachedIDs = ids
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()
	return append([]string(nil), ids...), nil
}

// InvalidateRowCache forces the next call to re-read the id column.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cachedIDs = nil
	c.cacheExpiresAt = time.Time{}
}

func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	if c.sheetID != nil {
		id := *c.sheetID
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet properties: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheetName {
			id := s.Properties.SheetId
			c.mu.Lock()
			c.sheetID = &id
			c.mu.Unlock()
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}
