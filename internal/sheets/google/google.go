package google

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

	"gastos/internal/core"
	"gastos/internal/sheets"
)

// Config selects the spreadsheet and how to authenticate against it.
type Config struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON wins over CredentialsFile when both are set.
	CredentialsJSON string
	CredentialsFile string
}

// Client mirrors the ledger into one sheet of a Google spreadsheet. Every
// write reads the sheet, splices rows in memory and rewrites it from A1, so
// the sheet never holds half a group. Writes are serialized per client.
type Client struct {
	mu            sync.Mutex
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

var _ sheets.Mirror = (*Client)(nil)

// New builds a client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing service. An empty sheet name means "Gastos".
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = "Gastos"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}
}

// newSheetsService initializes a Sheets service from service account credentials,
// falling back to GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := strings.TrimSpace(cfg.CredentialsJSON)
	credentialsFile := strings.TrimSpace(cfg.CredentialsFile)
	if credentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var raw []byte
	switch {
	case credentialsJSON != "":
		raw = []byte(credentialsJSON)
	case credentialsFile != "":
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		raw = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(raw),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(raw),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func (c *Client) ReplaceGroup(ctx context.Context, sourceID string, entries []core.LedgerEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.read(ctx)
	if err != nil {
		return err
	}
	out := sheets.SpliceGroup(withHeader(rows), sourceID, sheets.EncodeRows(entries))
	if err := c.rewrite(ctx, out); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Mirrored group", "sheet", c.sheet, "source_id", sourceID, "rows", len(entries))
	return nil
}

func (c *Client) DeleteGroup(ctx context.Context, sourceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.read(ctx)
	if err != nil {
		return err
	}
	out := sheets.SpliceGroup(rows, sourceID, nil)
	if len(out) == len(rows) {
		return nil
	}
	if err := c.rewrite(ctx, out); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Removed group from mirror", "sheet", c.sheet, "source_id", sourceID,
		"rows", len(rows)-len(out))
	return nil
}

func (c *Client) ReplaceAll(ctx context.Context, entries []core.LedgerEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := append([][]any{sheets.Header}, sheets.EncodeRows(entries)...)
	if err := c.rewrite(ctx, out); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Rebuilt mirror", "sheet", c.sheet, "rows", len(entries))
	return nil
}

func (c *Client) read(ctx context.Context) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := sheets.A1(c.sheet, "A:"+sheets.LastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read mirror: %w", err)
	}
	return resp.Values, nil
}

func (c *Client) rewrite(ctx context.Context, rows [][]any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, sheets.A1(c.sheet, "A:"+sheets.LastColumn),
		&gsheet.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear mirror: %w", err)
	}
	vr := &gsheet.ValueRange{Values: rows}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, sheets.A1(c.sheet, "A1"), vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write mirror: %w", err)
	}
	return nil
}

func withHeader(rows [][]any) [][]any {
	if len(rows) > 0 && sheets.IsHeader(rows[0]) {
		return rows
	}
	return append([][]any{sheets.Header}, rows...)
}
