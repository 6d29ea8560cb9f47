package webdir

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/isethius/Autowebsites-sub001/discovery"
	"github.com/isethius/Autowebsites-sub001/lead"
)

var _ discovery.Source = (*Directory)(nil)

// Selectors locates lead fields inside a directory results page. All
// selectors except Listing and Name are optional; an empty selector
// matches nothing.
type Selectors struct {
	// Listing matches one result card.
	Listing string
	// Name matches the business name inside a card.
	Name string
	// Website matches the anchor whose href is the business's own site.
	Website string
	// Email matches a mailto anchor or an element whose text is the
	// address.
	Email string
	// Phone matches a tel anchor or an element whose text is the
	// number.
	Phone string
	// Address matches the street address.
	Address string
}

// DefaultSelectors is tuned for the markup common US business
// directories share.
func DefaultSelectors() Selectors {
	return Selectors{
		Listing: "div.result",
		Name:    "a.business-name",
		Website: "a.track-visit-website",
		Email:   "a.email-business",
		Phone:   "div.phones",
		Address: "div.street-address",
	}
}

// Directory scrapes one business directory site. It is safe for
// concurrent use.
type Directory struct {
	base          *url.URL
	selectors     Selectors
	industryParam string
	locationParam string
	client        *http.Client
	auditor       *Auditor
	userAgent     string
	logger        *slog.Logger
}

// Option configures a Directory.
type Option func(*Directory)

// WithSelectors replaces the default field selectors.
func WithSelectors(s Selectors) Option {
	return func(d *Directory) { d.selectors = s }
}

// WithQueryParams sets the search query parameter names for the
// industry and location terms. Defaults are "what" and "where".
func WithQueryParams(industry, location string) Option {
	return func(d *Directory) {
		d.industryParam = industry
		d.locationParam = location
	}
}

// WithHTTPClient sets the client used for directory pages and website
// audits.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Directory) { d.client = c }
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(d *Directory) { d.userAgent = ua }
}

// WithAuditor replaces the auditor built from the directory's own
// client.
func WithAuditor(a *Auditor) Option {
	return func(d *Directory) { d.auditor = a }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Directory) { d.logger = l }
}

// New creates a Directory scraping the given base search URL.
func New(baseURL string, opts ...Option) (*Directory, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("webdir: invalid base URL %q", baseURL)
	}

	d := &Directory{
		base:          base,
		selectors:     DefaultSelectors(),
		industryParam: "what",
		locationParam: "where",
		client:        &http.Client{Timeout: DefaultTimeout},
		userAgent:     DefaultUserAgent,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.auditor == nil {
		d.auditor = &Auditor{Client: d.client, UserAgent: d.userAgent}
	}
	return d, nil
}

// Discover implements discovery.Source. It fetches one results page,
// parses up to limit cards, and audits each discovered website. Cards
// without a name and duplicate business names are skipped.
func (d *Directory) Discover(ctx context.Context, industry, location string, limit int) ([]*lead.Lead, error) {
	if limit <= 0 {
		return nil, nil
	}

	doc, _, err := fetchDocument(ctx, d.client, d.userAgent, d.searchURL(industry, location))
	if err != nil {
		return nil, fmt.Errorf("webdir: discover %s in %s: %w", industry, location, err)
	}

	leads := make([]*lead.Lead, 0, limit)
	seen := make(map[string]struct{})
	doc.Find(d.selectors.Listing).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		l := d.parseListing(card, industry, location)
		if l == nil {
			return true
		}
		key := strings.ToLower(l.BusinessName)
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		leads = append(leads, l)
		return len(leads) < limit
	})

	for _, l := range leads {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !l.HasWebsite() {
			continue
		}
		score, err := d.auditor.Score(ctx, l.Website)
		if err != nil {
			// A site that won't load is graded like the worst site
			// that does.
			d.logger.Debug("website audit failed",
				"business", l.BusinessName,
				"website", l.Website,
				"error", err)
			score = 1
		}
		l.WebsiteScore = score
	}
	return leads, nil
}

// searchURL builds the results-page URL for one industry/location
// query.
func (d *Directory) searchURL(industry, location string) string {
	u := *d.base
	q := u.Query()
	q.Set(d.industryParam, industry)
	q.Set(d.locationParam, location)
	u.RawQuery = q.Encode()
	return u.String()
}

// parseListing extracts one lead from a result card, or nil when the
// card has no business name.
func (d *Directory) parseListing(card *goquery.Selection, industry, location string) *lead.Lead {
	name := strings.TrimSpace(card.Find(d.selectors.Name).First().Text())
	if name == "" {
		return nil
	}

	l := lead.New(name, industry, location)
	if href, ok := card.Find(d.selectors.Website).First().Attr("href"); ok {
		l.Website = d.resolveWebsite(href)
	}
	l.Email = extractEmail(card, d.selectors.Email)
	l.Phone = extractPhone(card, d.selectors.Phone)
	l.Address = strings.TrimSpace(card.Find(d.selectors.Address).First().Text())
	return l
}

// resolveWebsite turns a card's website href into an absolute URL, or
// "" when it is not a usable external link. Directories wrap outbound
// links, so a same-host href is a detail page, not the business site.
func (d *Directory) resolveWebsite(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	abs := d.base.ResolveReference(u)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	if abs.Host == d.base.Host {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}

func extractEmail(card *goquery.Selection, selector string) string {
	a := card.Find(selector).First()
	if href, ok := a.Attr("href"); ok && strings.HasPrefix(href, "mailto:") {
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		return strings.TrimSpace(addr)
	}
	if text := strings.TrimSpace(a.Text()); strings.Contains(text, "@") {
		return text
	}
	return ""
}

func extractPhone(card *goquery.Selection, selector string) string {
	a := card.Find(selector).First()
	if href, ok := a.Attr("href"); ok && strings.HasPrefix(href, "tel:") {
		return strings.TrimSpace(strings.TrimPrefix(href, "tel:"))
	}
	return strings.TrimSpace(a.Text())
}
