package webdir

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Auditor grades how badly a business website needs replacing. The
// zero value uses a default client and user agent.
type Auditor struct {
	Client    *http.Client
	UserAgent string
}

// Score fetches rawURL and grades it 1-10 on five signals, two points
// each: HTTPS, a viewport meta tag, a page title, visible contact
// details, and a copyright notice no older than last year. A page that
// loads but shows none of them scores 1.
//
// The caller decides what a fetch failure means; Score only reports it.
func (a *Auditor) Score(ctx context.Context, rawURL string) (int, error) {
	client := a.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	userAgent := a.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	doc, finalURL, err := fetchDocument(ctx, client, userAgent, rawURL)
	if err != nil {
		return 0, err
	}

	score := 0
	if finalURL.Scheme == "https" {
		score += 2
	}
	if doc.Find(`meta[name="viewport"]`).Length() > 0 {
		score += 2
	}
	if strings.TrimSpace(doc.Find("title").First().Text()) != "" {
		score += 2
	}
	if hasContactInfo(doc) {
		score += 2
	}
	if hasFreshCopyright(doc, time.Now().Year()) {
		score += 2
	}
	if score == 0 {
		score = 1
	}
	return score, nil
}

// hasContactInfo reports whether the page offers any way to reach the
// business: a mailto or tel link, or a link to a contact page.
func hasContactInfo(doc *goquery.Document) bool {
	return doc.Find(`a[href^="mailto:"], a[href^="tel:"], a[href*="contact"]`).Length() > 0
}

var yearRe = regexp.MustCompile(`\b20\d{2}\b`)

// hasFreshCopyright reports whether the page carries a copyright year
// no older than last year. A stale footer year is the cheapest tell of
// an abandoned site. Outside a footer, a year only counts next to a
// copyright marker, so dates in body copy don't register.
func hasFreshCopyright(doc *goquery.Document, currentYear int) bool {
	text := doc.Find("footer, .footer, #footer").Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Find("body").Text()
		lower := strings.ToLower(text)
		if !strings.Contains(lower, "©") && !strings.Contains(lower, "copyright") {
			return false
		}
	}
	for _, m := range yearRe.FindAllString(text, -1) {
		year, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if year >= currentYear-1 {
			return true
		}
	}
	return false
}
