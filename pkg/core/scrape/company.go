package scrape

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"watchtrack/pkg/models"
)

// pageParser is one versioned strategy for reading a company detail page.
// Matches is the capability probe: it must be cheap and side-effect free.
// Parsers are tried in registration order; the first match wins. Layout
// probes keep field extraction off hard-coded offsets so a site redesign
// means adding a parser, not patching selectors all over.
type pageParser interface {
	Version() string
	Matches(doc *goquery.Document) bool
	Parse(doc *goquery.Document, ref models.CompanyRef) *models.CompanyRecord
}

// FetchCompany retrieves and parses one company detail page. Every failure
// is an *ExtractionError: the caller skips this company and continues.
func (c *Client) FetchCompany(ctx context.Context, ref models.CompanyRef) (*models.CompanyRecord, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(ref.URL)
	if err != nil {
		return nil, &ExtractionError{Company: ref.Name, URL: ref.URL, Reason: "page fetch failed", Err: err}
	}
	if res.StatusCode() != 200 {
		return nil, &ExtractionError{Company: ref.Name, URL: ref.URL, Reason: fmt.Sprintf("unexpected status %d", res.StatusCode())}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, &ExtractionError{Company: ref.Name, URL: ref.URL, Reason: "could not parse page", Err: err}
	}

	return c.parseCompanyDoc(doc, ref)
}

func (c *Client) parseCompanyDoc(doc *goquery.Document, ref models.CompanyRef) (*models.CompanyRecord, error) {
	for _, p := range c.parsers {
		if !p.Matches(doc) {
			continue
		}
		rec := p.Parse(doc, ref)
		rec.ScrapedAt = time.Now()
		return rec, nil
	}
	return nil, &ExtractionError{Company: ref.Name, URL: ref.URL, Reason: "unrecognized page layout"}
}

// =============================================================================
// PARSER V1 — #top-ratios label/value list (current site layout)
// =============================================================================

type topRatiosParser struct{}

func (topRatiosParser) Version() string { return "top-ratios-v1" }

func (topRatiosParser) Matches(doc *goquery.Document) bool {
	return doc.Find("#top-ratios li").Length() > 0
}

func (topRatiosParser) Parse(doc *goquery.Document, ref models.CompanyRef) *models.CompanyRecord {
	rec := &models.CompanyRecord{
		Name:            ref.Name,
		URL:             ref.URL,
		SourceWatchlist: ref.Watchlist,
	}

	// Fields are matched by label text, never by position: the site reorders
	// and inserts ratios without notice.
	doc.Find("#top-ratios li").Each(func(_ int, li *goquery.Selection) {
		label := strings.TrimSpace(li.Find("span.name").Text())
		value := li.Find("span.number").First().Text()
		switch {
		case strings.Contains(label, "Current Price"):
			rec.CurrentPrice = parseDecimal(value)
		case strings.Contains(label, "Market Cap"):
			rec.MarketCap = parseDecimal(value)
		case strings.Contains(label, "P/E"):
			rec.PERatio = parseDecimal(value)
		}
	})

	rec.Sector = strings.TrimSpace(doc.Find(".sub a").First().Text())
	rec.Quarters = parseQuarters(doc)
	return rec
}

// =============================================================================
// PARSER V2 — two-column ratio table (older layout, kept for drift coverage)
// =============================================================================

type ratioTableParser struct{}

func (ratioTableParser) Version() string { return "ratio-table-v2" }

func (ratioTableParser) Matches(doc *goquery.Document) bool {
	return doc.Find("table.ratios tr").Length() > 0
}

func (ratioTableParser) Parse(doc *goquery.Document, ref models.CompanyRef) *models.CompanyRecord {
	rec := &models.CompanyRecord{
		Name:            ref.Name,
		URL:             ref.URL,
		SourceWatchlist: ref.Watchlist,
	}

	doc.Find("table.ratios tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := strings.TrimSpace(cells.Eq(0).Text())
		value := cells.Eq(1).Text()
		switch {
		case strings.Contains(label, "Current Price"):
			rec.CurrentPrice = parseDecimal(value)
		case strings.Contains(label, "Market Cap"):
			rec.MarketCap = parseDecimal(value)
		case strings.Contains(label, "P/E"):
			rec.PERatio = parseDecimal(value)
		case strings.Contains(label, "Sector"):
			rec.Sector = strings.TrimSpace(cells.Eq(1).Text())
		}
	})

	if rec.Sector == "" {
		rec.Sector = strings.TrimSpace(doc.Find(".sub a").First().Text())
	}
	rec.Quarters = parseQuarters(doc)
	return rec
}

// =============================================================================
// SHARED EXTRACTION HELPERS
// =============================================================================

const maxQuarters = 8

// parseQuarters reads the quarterly results table: periods come from the
// header row, sales and net profit from their metric rows. Absent section or
// rows are fine; quarters are a bonus, not a required field.
func parseQuarters(doc *goquery.Document) []models.QuarterlyResult {
	table := doc.Find("section#quarters table").First()
	if table.Length() == 0 {
		return nil
	}

	var periods []string
	table.Find("thead th").Each(func(i int, th *goquery.Selection) {
		if i == 0 {
			return // metric-name column
		}
		periods = append(periods, strings.TrimSpace(th.Text()))
	})
	if len(periods) == 0 {
		return nil
	}

	sales := findMetricRow(table, "Sales")
	profit := findMetricRow(table, "Net Profit")

	// Keep only the most recent quarters.
	start := 0
	if len(periods) > maxQuarters {
		start = len(periods) - maxQuarters
	}

	var out []models.QuarterlyResult
	for i := start; i < len(periods); i++ {
		q := models.QuarterlyResult{Period: periods[i]}
		if i < len(sales) {
			q.Sales = parseDecimal(sales[i])
		}
		if i < len(profit) {
			q.NetProfit = parseDecimal(profit[i])
		}
		out = append(out, q)
	}
	return out
}

// findMetricRow returns the per-period cell values of the tbody row whose
// first cell contains the metric name.
func findMetricRow(table *goquery.Selection, metric string) []string {
	var values []string
	table.Find("tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true
		}
		if !strings.Contains(strings.TrimSpace(cells.Eq(0).Text()), metric) {
			return true
		}
		cells.Each(func(j int, cell *goquery.Selection) {
			if j == 0 {
				return
			}
			values = append(values, cell.Text())
		})
		return false
	})
	return values
}

var numberCleaner = strings.NewReplacer("₹", "", ",", "", "%", "", "Cr.", "", "Cr", "")

// parseDecimal turns a displayed number ("₹ 1,234.55", "22.5 %", "--") into
// a NullDecimal. Anything unparsable is null, not an error: a missing
// optional field must not sink the record.
func parseDecimal(raw string) decimal.NullDecimal {
	s := strings.TrimSpace(numberCleaner.Replace(raw))
	if s == "" || s == "--" || s == "-" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
