package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CompanyRef identifies a company discovered on a watchlist page, before its
// detail page has been scraped.
type CompanyRef struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Watchlist string `json:"watchlist"`
}

// QuarterlyResult holds one quarter of results from the company detail page.
type QuarterlyResult struct {
	Period    string              `json:"period"` // e.g. "Jun 2025"
	Sales     decimal.NullDecimal `json:"sales"`
	NetProfit decimal.NullDecimal `json:"net_profit"`
}

// CompanyRecord is the normalized output of scraping one company.
//
// Name is the join key between the Raw Data sheet and the dashboard lookup;
// it is unique within a run after dedup. The decimal fields are NullDecimal
// because the source page may omit any of them (market closed, loss-making
// company, missing sector tag) without that being an error.
type CompanyRecord struct {
	Name            string              `json:"name"`
	CurrentPrice    decimal.NullDecimal `json:"current_price"`
	MarketCap       decimal.NullDecimal `json:"market_cap"` // crore
	PERatio         decimal.NullDecimal `json:"pe_ratio"`
	Sector          string              `json:"sector"`
	URL             string              `json:"url"`
	SourceWatchlist string              `json:"source_watchlist"`
	Quarters        []QuarterlyResult   `json:"quarters,omitempty"`
	ScrapedAt       time.Time           `json:"scraped_at"`
}

// RunSnapshot is the merged, deduplicated result of one pipeline run.
// Records keep insertion order: watchlists in configured order, rows in page order.
type RunSnapshot struct {
	RunID     uuid.UUID       `json:"run_id"`
	StartedAt time.Time       `json:"started_at"`
	Records   []CompanyRecord `json:"records"`
}
