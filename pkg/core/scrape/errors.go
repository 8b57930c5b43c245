package scrape

import "fmt"

// AuthenticationError means the source site rejected our credentials or
// presented a login challenge we cannot pass. Fatal: the run aborts.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// FetchError means one watchlist could not be retrieved or did not look like
// a watchlist page. The pipeline skips that watchlist and continues.
type FetchError struct {
	Watchlist string
	URL       string
	Reason    string
	Err       error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch watchlist %q: %s: %v", e.Watchlist, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch watchlist %q: %s", e.Watchlist, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError means one company's detail page could not be turned into a
// record, usually because no parser version recognizes the layout. The
// pipeline skips that company and continues; a burst of these signals the
// site changed and a parser needs maintenance.
type ExtractionError struct {
	Company string
	URL     string
	Reason  string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %q: %s: %v", e.Company, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %q: %s", e.Company, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
