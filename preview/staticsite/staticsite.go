// Package staticsite deploys previews as static one-page sites.
//
// Deploy renders the embedded template into <root>/<slug>/index.html
// and returns the public URL for that slug. Redeploying the same
// business overwrites the page, so regenerated previews replace stale
// ones. Serving the root directory is the caller's job; Handler is a
// ready-made file server for it.
package staticsite

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/isethius/Autowebsites-sub001/lead"
	"github.com/isethius/Autowebsites-sub001/preview"
)

var _ preview.Deployer = (*Deployer)(nil)

//go:embed site.tmpl
var siteHTML string

var siteTmpl = template.Must(template.New("site").Funcs(template.FuncMap{
	"tel": telDigits,
}).Parse(siteHTML))

// palette is one named color scheme the generator may pick.
type palette struct {
	Primary    string
	Accent     string
	Background string
	Text       string
}

var palettes = map[string]palette{
	"blue":    {Primary: "#1d4ed8", Accent: "#f59e0b", Background: "#f8fafc", Text: "#1e293b"},
	"green":   {Primary: "#15803d", Accent: "#ca8a04", Background: "#f7fdf9", Text: "#14532d"},
	"warm":    {Primary: "#b45309", Accent: "#dc2626", Background: "#fffbf5", Text: "#44403c"},
	"dark":    {Primary: "#0f172a", Accent: "#38bdf8", Background: "#f1f5f9", Text: "#0f172a"},
	"neutral": {Primary: "#334155", Accent: "#0d9488", Background: "#fafafa", Text: "#27272a"},
}

// paletteFor maps a content color scheme to a palette, falling back to
// neutral for anything the template doesn't know.
func paletteFor(scheme string) palette {
	if p, ok := palettes[scheme]; ok {
		return p
	}
	return palettes["neutral"]
}

// Deployer writes rendered previews under a root directory. It is safe
// for concurrent use; concurrent deploys of distinct leads touch
// distinct slug directories.
type Deployer struct {
	root    string
	baseURL string
}

// New creates a Deployer writing under root and returning URLs under
// baseURL. The root directory is created if missing.
func New(root, baseURL string) (*Deployer, error) {
	if root == "" {
		return nil, fmt.Errorf("staticsite: root directory required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("staticsite: invalid base URL %q", baseURL)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("staticsite: create root: %w", err)
	}
	return &Deployer{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Deploy implements preview.Deployer.
func (d *Deployer) Deploy(ctx context.Context, l *lead.Lead, c *preview.Content) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	slug := makeSlug(l.BusinessName, l.Location)
	data := struct {
		BusinessName string
		Phone        string
		Email        string
		Address      string
		Content      *preview.Content
		Palette      palette
		Year         int
	}{
		BusinessName: l.BusinessName,
		Phone:        l.Phone,
		Email:        l.Email,
		Address:      l.Address,
		Content:      c,
		Palette:      paletteFor(c.ColorScheme),
		Year:         time.Now().Year(),
	}

	var buf bytes.Buffer
	if err := siteTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("staticsite: render %s: %w", slug, err)
	}

	dir := filepath.Join(d.root, slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("staticsite: create %s: %w", slug, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.html"), buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("staticsite: write %s: %w", slug, err)
	}

	return d.baseURL + "/" + slug + "/", nil
}

// Handler serves the deployed sites.
func (d *Deployer) Handler() http.Handler {
	return http.FileServer(http.Dir(d.root))
}

// makeSlug builds a URL-safe directory name from the business name and
// location. Deterministic so redeploys land on the same path.
func makeSlug(parts ...string) string {
	var b strings.Builder
	for _, part := range parts {
		for _, r := range strings.ToLower(part) {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
				b.WriteRune(r)
			default:
				b.WriteByte('-')
			}
		}
		b.WriteByte('-')
	}

	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")
	if len(slug) > 80 {
		slug = strings.Trim(slug[:80], "-")
	}
	if slug == "" {
		slug = "preview"
	}
	return slug
}

// telDigits strips a phone number down to what belongs in a tel: href.
func telDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '+' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
