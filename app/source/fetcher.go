package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

const (
	DefaultTimeout        = 30 * time.Second
	DefaultUserAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	DefaultAcceptLanguage = "ru-RU,ru;q=0.9,en;q=0.8"
	DefaultMaxBytes       = 10 << 20
)

type FetcherConfig struct {
	Timeout        time.Duration
	UserAgent      string
	AcceptLanguage string
	MaxBytes       int64
}

func (c *FetcherConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.AcceptLanguage == "" {
		c.AcceptLanguage = DefaultAcceptLanguage
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
}

// Page is a fetched response. Body is decoded to UTF-8, Raw is untouched.
type Page struct {
	URL  string // final URL after redirects
	Body []byte
	Raw  []byte
}

// Fetcher issues browser-like GET requests with a fixed per-request timeout.
type Fetcher struct {
	client *http.Client
	cfg    FetcherConfig
}

func NewFetcher(cfg FetcherConfig) *Fetcher {
	cfg.defaults()
	return &Fetcher{
		client: &http.Client{},
		cfg:    cfg,
	}
}

// Get fetches rawURL. Transport errors and non-2xx statuses are errors.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Page, error) {
	return f.GetWithHeaders(ctx, rawURL, nil)
}

// GetWithHeaders fetches rawURL with extra request headers.
func (f *Fetcher) GetWithHeaders(ctx context.Context, rawURL string, header http.Header) (*Page, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", f.cfg.AcceptLanguage)
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch %s: HTTP %s", rawURL, resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body of %s: %w", rawURL, err)
	}
	if int64(len(raw)) > f.cfg.MaxBytes {
		return nil, fmt.Errorf("failed to fetch %s: response body exceeds %d bytes", rawURL, f.cfg.MaxBytes)
	}

	reader, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to detect charset of %s: %w", rawURL, err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response body of %s: %w", rawURL, err)
	}

	return &Page{URL: resp.Request.URL.String(), Body: body, Raw: raw}, nil
}

// Document fetches rawURL and parses it as HTML.
func (f *Fetcher) Document(ctx context.Context, rawURL string) (*goquery.Document, string, error) {
	return f.DocumentWithHeaders(ctx, rawURL, nil)
}

func (f *Fetcher) DocumentWithHeaders(ctx context.Context, rawURL string, header http.Header) (*goquery.Document, string, error) {
	page, err := f.GetWithHeaders(ctx, rawURL, header)
	if err != nil {
		return nil, "", err
	}

	doc, err := page.Document()
	if err != nil {
		return nil, "", err
	}

	return doc, page.URL, nil
}

// Document parses the decoded body as HTML.
func (p *Page) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML of %s: %w", p.URL, err)
	}

	if u, err := url.Parse(p.URL); err == nil {
		doc.Url = u
	}

	return doc, nil
}
