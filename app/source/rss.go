package source

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/cfp-comb/app/record"
)

const RSSName = "rss"

// RSS reads one or more RSS/Atom feeds. When includes is set, only items
// whose title or description mention one of the keywords are kept.
type RSS struct {
	fetcher  *Fetcher
	name     string
	feeds    []string
	includes []string
	parser   *gofeed.Parser
}

func NewRSS(fetcher *Fetcher, name string, feeds, includes []string) *RSS {
	return &RSS{
		fetcher:  fetcher,
		name:     cmp.Or(name, RSSName),
		feeds:    feeds,
		includes: includes,
		parser:   gofeed.NewParser(),
	}
}

func (r *RSS) Name() string {
	return r.name
}

// Run fails only when every feed fails; a broken feed among working ones is
// logged and skipped.
func (r *RSS) Run(ctx context.Context) ([]record.Record, error) {
	var records []record.Record
	var lastErr error
	failed := 0

	for _, feedURL := range r.feeds {
		items, err := r.readFeed(ctx, feedURL)
		if err != nil {
			slog.Warn("Feed unavailable", "source", r.name, "url", feedURL, "error", err)
			lastErr = err
			failed++
			continue
		}
		records = append(records, items...)
	}

	if len(r.feeds) > 0 && failed == len(r.feeds) {
		return nil, lastErr
	}

	return records, nil
}

func (r *RSS) readFeed(ctx context.Context, feedURL string) ([]record.Record, error) {
	page, err := r.fetcher.Get(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	feed, err := r.parser.Parse(bytes.NewReader(page.Raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	records := make([]record.Record, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		title := strings.TrimSpace(item.Title)
		text := htmlText(cmp.Or(item.Description, item.Content))
		if !r.matchesIncludes(title + "\n" + text) {
			continue
		}

		link := strings.TrimSpace(item.Link)
		urls := record.ExtractURLs(text)
		if link != "" {
			urls = append([]string{link}, urls...)
		}

		records = append(records, record.Record{
			Source:    r.name,
			OriginURL: feedURL,
			Title:     title,
			DateText:  strings.TrimSpace(cmp.Or(item.Published, item.Updated)),
			Details:   text,
			URLs:      record.Unique(urls),
			Emails:    record.Unique(record.ExtractEmails(text)),
		})
	}

	slog.Debug("Feed parsed", "source", r.name, "feed", feed.Title, "items", len(feed.Items), "records", len(records))

	return records, nil
}

func (r *RSS) matchesIncludes(value string) bool {
	if len(r.includes) == 0 {
		return true
	}
	value = strings.ToLower(value)
	for _, include := range r.includes {
		if strings.Contains(value, strings.ToLower(include)) {
			return true
		}
	}
	return false
}

// htmlText flattens an HTML fragment to newline separated text.
func htmlText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return nodeText(doc.Selection, "\n")
}
