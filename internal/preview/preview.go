// Package preview fetches a job posting's public page and extracts the few
// fields the UI shows in the detail pane. Best effort: postings live on
// arbitrary career sites and many of them render junk.
package preview

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"jobxpress-engine/internal/netutil"
)

const maxDescriptionRunes = 300

type Page struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
}

type Fetcher struct {
	hc      *http.Client
	limiter *netutil.HostLimiter
}

func NewFetcher(limiter *netutil.HostLimiter) *Fetcher {
	return &Fetcher{
		hc:      &http.Client{Timeout: 15 * time.Second},
		limiter: limiter,
	}
}

// Fetch downloads rawURL and scrapes title/description/location out of it.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Page{}, fmt.Errorf("bad preview url %q", rawURL)
	}

	if err := f.limiter.WaitURL(ctx, rawURL); err != nil {
		return Page{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("User-Agent", "JobXpress/1.0 (+local)")

	res, err := f.hc.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("preview get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return Page{}, fmt.Errorf("preview status %d", res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return Page{}, fmt.Errorf("preview parse html: %w", err)
	}

	return Extract(u.String(), doc), nil
}

// Extract pulls the preview fields out of a parsed document. Split out so
// it can be exercised without a live fetch.
func Extract(pageURL string, doc *goquery.Document) Page {
	p := Page{URL: pageURL}

	if v, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		p.Title = cleanText(v)
	}
	if p.Title == "" {
		p.Title = cleanText(doc.Find("h1").First().Text())
	}
	if p.Title == "" {
		p.Title = cleanText(doc.Find("title").First().Text())
	}

	if v, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok {
		p.Description = cleanText(v)
	}
	if p.Description == "" {
		doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t := cleanText(s.Text()); t != "" {
				p.Description = t
				return false
			}
			return true
		})
	}
	p.Description = truncate(p.Description, maxDescriptionRunes)

	p.Location = cleanText(doc.Find(".location").First().Text())

	return p
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
