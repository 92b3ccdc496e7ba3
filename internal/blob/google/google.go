// Package google stores scoreboard slots in a Google Sheets tab: one row per
// slot, the key in column A and its JSON text in column B.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"scoreboard/internal/blob"
	"scoreboard/internal/cache"
	"scoreboard/internal/log"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	reads         *cache.LRU[string, []byte]
	logger        *log.Logger
}

var (
	_ blob.Store       = (*Client)(nil)
	_ blob.BatchWriter = (*Client)(nil)
)

// Options configures a sheets-backed store.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	// CacheTTL bounds how long a read is served without calling the API.
	// Zero disables the read cache.
	CacheTTL time.Duration
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(opts.SheetName) == "" {
		return nil, errors.New("missing sheet name")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, opts), nil
}

func newClient(svc *gsheet.Service, opts Options) *Client {
	c := &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetName:     opts.SheetName,
		logger:        log.WithComponent(log.ComponentSheets),
	}
	if opts.CacheTTL > 0 {
		c.reads = cache.NewLRU[string, []byte](16, opts.CacheTTL)
	}
	return c
}

// ReadCache exposes the read cache for expiry sweeps; nil when disabled.
func (c *Client) ReadCache() *cache.LRU[string, []byte] { return c.reads }

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		credentialsJSON = []byte(opts.CredentialsJSON)
	case strings.TrimSpace(opts.CredentialsFile) != "":
		raw, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = raw
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

// Get implements blob.Reader
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.reads != nil {
		if v, ok := c.reads.Get(key); ok {
			return v, v != nil, nil
		}
	}
	index, err := c.readIndex(ctx)
	if err != nil {
		return nil, false, err
	}
	if c.reads != nil {
		for k, row := range index {
			c.reads.Set(k, []byte(row.value))
		}
		if _, ok := index[key]; !ok {
			c.reads.Set(key, nil)
		}
	}
	row, ok := index[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(row.value), true, nil
}

// Set implements blob.Writer
func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	return c.SetMany(ctx, map[string][]byte{key: value})
}

// SetMany implements blob.BatchWriter. Existing rows are updated in one batch
// call and new keys are appended in a second one.
func (c *Client) SetMany(ctx context.Context, blobs map[string][]byte) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	index, err := c.readIndex(ctx)
	if err != nil {
		return err
	}
	updates, appends := planWrites(c.sheetName, index, blobs)

	if len(updates) > 0 {
		req := &gsheet.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: updates}
		if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("update rows in sheet %s: %w", c.sheetName, err)
		}
	}
	if len(appends) > 0 {
		rng := fmt.Sprintf("%s!A:B", c.sheetName)
		vr := &gsheet.ValueRange{Values: appends}
		_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append rows to sheet %s: %w", c.sheetName, err)
		}
	}

	if c.reads != nil {
		for k, v := range blobs {
			c.reads.Set(k, append([]byte(nil), v...))
		}
	}
	c.logger.DebugContext(ctx, "Slots written to sheet", log.FieldCount, len(blobs), "updated", len(updates), "appended", len(appends))
	return nil
}

func (c *Client) readIndex(ctx context.Context) (map[string]slotRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:B", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return indexRows(resp.Values), nil
}
