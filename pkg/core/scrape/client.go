// Package scrape logs into the source site and turns its watchlist and
// company pages into models records.
//
// This package uses the following external libraries:
//   - github.com/go-resty/resty/v2: HTTP client with cookie jar and retry
//   - github.com/DaRealFreak/cloudflare-bp-go: the site sits behind Cloudflare
//   - github.com/PuerkitoBio/goquery: jQuery-style HTML traversal
package scrape

import (
	"bytes"
	"context"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	loginPath = "/login/"

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

	defaultTimeout = 30 * time.Second
	retryCount     = 1
	retryWait      = 2 * time.Second
)

// Client is an authenticated session against the source site. Not safe for
// concurrent use; the pipeline is single-threaded by design.
type Client struct {
	baseURL *url.URL
	http    *resty.Client
	parsers []pageParser
}

// Options configures a Client. Zero values get sensible defaults.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// NewClient builds an unauthenticated client. Call Login before fetching.
func NewClient(opts Options) (*Client, error) {
	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", opts.UserAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseURL.Hostname()))
	client.SetTimeout(opts.Timeout)

	// One bounded retry per fetch on transport errors and 5xx, to cover
	// transient flakes without hammering the site. Login requests are never
	// retried: rejected credentials do not improve on a second attempt.
	client.SetRetryCount(retryCount)
	client.SetRetryWaitTime(retryWait)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if r != nil && r.Request != nil && strings.Contains(r.Request.URL, loginPath) {
			return false
		}
		return err != nil || r.StatusCode() >= 500
	})

	return &Client{
		baseURL: baseURL,
		http:    client,
		parsers: []pageParser{topRatiosParser{}, ratioTableParser{}},
	}, nil
}

// Login performs the username/password form login. The CSRF token is read
// from the rendered form; if the form is missing (challenge page, layout
// change) or the response still renders a login form, an
// *AuthenticationError is returned and the run must abort.
func (c *Client) Login(ctx context.Context, username, password string) error {
	res, err := c.http.R().
		SetContext(ctx).
		Get(loginPath)
	if err != nil {
		return &AuthenticationError{Reason: "could not reach login page", Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return &AuthenticationError{Reason: "could not parse login page", Err: err}
	}

	csrf := doc.Find("input[name=csrfmiddlewaretoken]").AttrOr("value", "")
	if csrf == "" {
		return &AuthenticationError{Reason: "login form not found, possibly a challenge page"}
	}

	res, err = c.http.R().
		SetContext(ctx).
		SetHeader("referer", c.baseURL.String()+loginPath).
		SetFormData(map[string]string{
			"csrfmiddlewaretoken": csrf,
			"username":            username,
			"password":            password,
		}).
		Post(loginPath)
	if err != nil {
		return &AuthenticationError{Reason: "login request failed", Err: err}
	}

	// A successful login redirects away from /login/; rejected credentials
	// re-render the form.
	if strings.Contains(finalURLPath(res), loginPath) || isLoginPage(res.Body()) {
		return &AuthenticationError{Reason: "credentials rejected"}
	}
	return nil
}

// finalURLPath returns the path of the URL the response actually came from,
// after redirects.
func finalURLPath(res *resty.Response) string {
	if res.RawResponse != nil && res.RawResponse.Request != nil && res.RawResponse.Request.URL != nil {
		return res.RawResponse.Request.URL.Path
	}
	return res.Request.URL
}

// isLoginPage reports whether the body renders the site login form, which is
// also how we detect a session-expired redirect on later fetches.
func isLoginPage(body []byte) bool {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return false
	}
	return doc.Find("input[name=csrfmiddlewaretoken]").Length() > 0 &&
		doc.Find("input[name=username], input[name=password]").Length() > 0
}

// resolveURL makes a possibly relative href absolute against the base URL.
func (c *Client) resolveURL(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return c.baseURL.ResolveReference(ref).String()
}
