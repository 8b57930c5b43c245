// Package sheets mirrors run snapshots to a Google Sheet for historical
// tracking. Publishing is best-effort: the caller logs failures and keeps
// the primary workbook.
package sheets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"

	"watchtrack/pkg/models"
)

// Publisher appends one tab per run to the destination spreadsheet. The
// snapshot history is append-only; earlier runs are never overwritten.
type Publisher struct {
	spreadsheetID string
	credsJSON     []byte
}

// NewPublisher decodes the base64 service-account credentials up front so a
// malformed secret fails at startup, not mid-run.
func NewPublisher(spreadsheetID, credentialsBase64 string) (*Publisher, error) {
	creds, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("decode service account credentials: %w", err)
	}
	return &Publisher{spreadsheetID: spreadsheetID, credsJSON: creds}, nil
}

func (p *Publisher) Name() string { return "google-sheets" }

// Publish creates a run_<timestamp> tab and writes header plus one row per
// record.
func (p *Publisher) Publish(ctx context.Context, snap *models.RunSnapshot) error {
	svc, err := sheetsv4.NewService(ctx,
		option.WithCredentialsJSON(p.credsJSON),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
	if err != nil {
		return fmt.Errorf("create sheets service: %w", err)
	}

	tab := "run_" + snap.StartedAt.Format("20060102_150405")
	_, err = svc.Spreadsheets.BatchUpdate(p.spreadsheetID, &sheetsv4.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsv4.Request{{
			AddSheet: &sheetsv4.AddSheetRequest{
				Properties: &sheetsv4.SheetProperties{Title: tab},
			},
		}},
	}).Context(ctx).Do()
	if err != nil && !isDuplicateSheetErr(err) {
		return fmt.Errorf("add sheet %s: %w", tab, err)
	}

	values := [][]interface{}{
		{"Run ID", snap.RunID.String(), "Started", snap.StartedAt.Format("2006-01-02 15:04:05")},
		{"Company", "Price", "Market Cap", "P/E", "Sector", "Watchlist", "URL"},
	}
	for _, rec := range snap.Records {
		values = append(values, []interface{}{
			rec.Name,
			nullDecimalString(rec.CurrentPrice),
			nullDecimalString(rec.MarketCap),
			nullDecimalString(rec.PERatio),
			rec.Sector,
			rec.SourceWatchlist,
			rec.URL,
		})
	}

	_, err = svc.Spreadsheets.Values.Update(p.spreadsheetID, fmt.Sprintf("'%s'!A1", tab), &sheetsv4.ValueRange{
		Values: values,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %d rows to %s: %w", len(values), tab, err)
	}
	return nil
}

// isDuplicateSheetErr reports whether AddSheet failed only because the tab
// already exists, which happens when the same run is re-published.
func isDuplicateSheetErr(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) &&
		apiErr.Code == http.StatusBadRequest &&
		strings.Contains(apiErr.Message, "already exists")
}

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
