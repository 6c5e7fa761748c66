// Package sheets wraps the Google Sheets API for the read-only statement
// source. Each unit's financial statement lives in a spreadsheet maintained by
// the field staff; this client only ever reads ranges, never writes.
//
// Authentication uses a service account JSON key file when one is configured,
// falling back to Application Default Credentials (GOOGLE_APPLICATION_CREDENTIALS,
// GCE metadata service, or gcloud auth application-default login).
package sheets

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/autoescola-ideal/sistema-interno/internal/config"
)

// defaultFetchTimeout bounds a single range read when the config leaves
// fetch_timeout unset.
const defaultFetchTimeout = 10 * time.Second

// Client reads spreadsheet ranges with a per-call timeout.
type Client struct {
	svc          *sheetsapi.Service
	fetchTimeout time.Duration
}

// New creates a Sheets client from configuration. The client is scoped to
// spreadsheets.readonly so a leaked credential cannot modify source data.
func New(ctx context.Context, cfg *config.SheetsConfig) (*Client, error) {
	opts := []option.ClientOption{
		option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope),
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	return &Client{svc: svc, fetchTimeout: timeout}, nil
}

// ReadRange fetches the raw cell values of one range. Rows come back as the
// API returns them: ragged, untyped, header row included.
func (c *Client) ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", readRange, err)
	}

	return resp.Values, nil
}
