package webdir

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout bounds a single page retrieval.
const DefaultTimeout = 15 * time.Second

// DefaultUserAgent identifies the scraper to directory and business
// sites.
const DefaultUserAgent = "Mozilla/5.0 (compatible; Autowebsites/1.0)"

var errInvalidURL = errors.New("invalid URL")

// FetchError reports a page retrieval that did not produce a parseable
// 200 response.
type FetchError struct {
	URL        string
	StatusCode int // zero when the request never completed
	Cause      error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("webdir: fetch %s: status %d", e.URL, e.StatusCode)
	case e.Cause != nil:
		return fmt.Sprintf("webdir: fetch %s: %v", e.URL, e.Cause)
	default:
		return fmt.Sprintf("webdir: fetch %s", e.URL)
	}
}

func (e *FetchError) Unwrap() error { return e.Cause }

// fetchDocument retrieves rawURL and parses the body. The returned URL
// is the final one after redirects, which is what the TLS audit signal
// cares about.
func fetchDocument(ctx context.Context, client *http.Client, userAgent, rawURL string) (*goquery.Document, *url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, &FetchError{URL: rawURL, Cause: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, nil, &FetchError{URL: rawURL, Cause: errInvalidURL}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, nil, &FetchError{URL: rawURL, Cause: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, &FetchError{URL: rawURL, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, &FetchError{URL: rawURL, Cause: err}
	}
	return doc, resp.Request.URL, nil
}
