package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const watchlistHTML = `<html><body>
<table class="data-table">
<thead><tr><th>S.No.</th><th>Name</th><th>CMP</th></tr></thead>
<tbody>
<tr><td>1.</td><td><a href="/company/ALPHA/">Alpha Ltd</a></td><td>2450.55</td></tr>
<tr><td>2.</td><td><a href="/company/BETA/">Beta Industries</a></td><td>310.00</td></tr>
<tr><td>3.</td><td><a href="/company/GAMMA/">Gamma Corp</a></td><td>99.10</td></tr>
<tr><td colspan="3">Median: 3 Co.</td></tr>
</tbody>
</table>
</body></html>`

func TestFetchWatchlist_ParsesCompanies(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(watchlistHTML))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	refs, err := c.FetchWatchlist(context.Background(), "Core", ts.URL+"/watchlist/1/")
	if err != nil {
		t.Fatalf("FetchWatchlist: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("expected 3 companies (summary row skipped), got %d", len(refs))
	}
	if refs[0].Name != "Alpha Ltd" {
		t.Errorf("expected page order preserved, first = %q", refs[0].Name)
	}
	if refs[0].URL != ts.URL+"/company/ALPHA/" {
		t.Errorf("expected absolute URL, got %q", refs[0].URL)
	}
	for _, ref := range refs {
		if ref.Watchlist != "Core" {
			t.Errorf("ref %q missing source watchlist", ref.Name)
		}
	}
}

func TestFetchWatchlist_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		},
		{
			name: "login redirect",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(loginFormHTML))
			},
		},
		{
			name: "no table on page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html><body><div>new shiny layout</div></body></html>`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			c := newTestClient(t, ts.URL)
			_, err := c.FetchWatchlist(context.Background(), "Core", ts.URL+"/watchlist/1/")
			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("expected *FetchError, got %T: %v", err, err)
			}
			if fetchErr.Watchlist != "Core" {
				t.Errorf("error should carry watchlist name, got %q", fetchErr.Watchlist)
			}
		})
	}
}

func TestFetchWatchlist_EmptyTable(t *testing.T) {
	// A watchlist with no members is valid, not a layout failure.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><table><tbody></tbody></table></body></html>`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	refs, err := c.FetchWatchlist(context.Background(), "Core", ts.URL+"/watchlist/1/")
	if err != nil {
		t.Fatalf("FetchWatchlist: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("expected no refs, got %d", len(refs))
	}
}
