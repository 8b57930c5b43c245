package scrape

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"watchtrack/pkg/models"
)

// FetchWatchlist retrieves one watchlist page and parses its member
// companies in page order. Any failure is a *FetchError: the caller skips
// this watchlist and moves on, so the dashboard still renders for the
// watchlists that succeeded.
func (c *Client) FetchWatchlist(ctx context.Context, name, watchlistURL string) ([]models.CompanyRef, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(watchlistURL)
	if err != nil {
		return nil, &FetchError{Watchlist: name, URL: watchlistURL, Reason: "request failed", Err: err}
	}
	if res.StatusCode() != 200 {
		return nil, &FetchError{Watchlist: name, URL: watchlistURL, Reason: fmt.Sprintf("unexpected status %d", res.StatusCode())}
	}
	if isLoginPage(res.Body()) {
		return nil, &FetchError{Watchlist: name, URL: watchlistURL, Reason: "redirected to login, session expired"}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, &FetchError{Watchlist: name, URL: watchlistURL, Reason: "could not parse page", Err: err}
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, &FetchError{Watchlist: name, URL: watchlistURL, Reason: "no data table on page, layout may have changed"}
	}

	var refs []models.CompanyRef
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("td a").First()
		companyName := strings.TrimSpace(link.Text())
		href := link.AttrOr("href", "")
		if companyName == "" || href == "" {
			// Summary and spacer rows carry no link; not an error.
			return
		}
		refs = append(refs, models.CompanyRef{
			Name:      companyName,
			URL:       c.resolveURL(href),
			Watchlist: name,
		})
	})

	return refs, nil
}
