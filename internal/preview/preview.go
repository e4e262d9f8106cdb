// Package preview fetches the page a story links to and pulls out a title and
// a short description. Story URLs are user-submitted, so requests go through
// an SSRF-guarded client that refuses private, loopback and link-local
// addresses after DNS resolution.
package preview

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"snooze/internal/cli/scheme/sanitize"

	"github.com/PuerkitoBio/goquery"
	"github.com/doyensec/safeurl"
	"github.com/sirupsen/logrus"
)

const userAgent = "snooze/1.0 (+link preview)"

// Page is what a preview shows
type Page struct {
	URL         string
	Title       string
	Description string
	SiteName    string
}

type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher builds a fetcher limited to http/https on ports 80 and 443.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return newFetcher(safeurl.Client(config).Client, maxBytes)
}

func newFetcher(client *http.Client, maxBytes int64) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return &Fetcher{client: client, maxBytes: maxBytes}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("failed to build preview request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("preview of %s returned status %d", rawURL, resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return Page{}, fmt.Errorf("preview of %s: unsupported content type %q", rawURL, ct)
	}

	page, err := Extract(io.LimitReader(resp.Body, f.maxBytes), rawURL)
	if err != nil {
		return Page{}, err
	}

	logrus.WithFields(logrus.Fields{
		"url":   rawURL,
		"title": page.Title,
	}).Debug("fetched preview")

	return page, nil
}

// Extract reads an HTML document. Open Graph tags win over <title> and the
// plain description meta tag.
func Extract(r io.Reader, pageURL string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse html: %w", err)
	}

	meta := func(selector string) string {
		v, _ := doc.Find(selector).First().Attr("content")
		return sanitize.Text(v)
	}

	page := Page{
		URL:         pageURL,
		Title:       meta(`meta[property="og:title"]`),
		Description: meta(`meta[property="og:description"]`),
		SiteName:    meta(`meta[property="og:site_name"]`),
	}
	if page.Title == "" {
		page.Title = sanitize.Text(doc.Find("title").First().Text())
	}
	if page.Description == "" {
		page.Description = meta(`meta[name="description"]`)
	}

	return page, nil
}
