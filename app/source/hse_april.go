package source

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/cfp-comb/app/record"
)

const (
	HSEAprilName       = "hse_april_conf"
	DefaultHSEAprilURL = "https://conf.hse.ru/en/%d"
)

var (
	hseAprilDate       = regexp.MustCompile(`(?i)(\d{1,2}\s+[A-Za-z]+\s+\d{4}|\d{1,2}\s+[а-яё]+\s+\d{4}|\d{4})`)
	contentClassMarker = regexp.MustCompile(`(?i)(content|container|main)`)
)

// HSEApril reads the single landing page of the HSE April conference for a
// given year.
type HSEApril struct {
	fetcher *Fetcher
	url     string
	year    int
}

// NewHSEApril targets urlTemplate formatted with year; year 0 means the
// next calendar year.
func NewHSEApril(fetcher *Fetcher, urlTemplate string, year int) *HSEApril {
	if year == 0 {
		year = time.Now().Year() + 1
	}
	u := urlTemplate
	if strings.Contains(u, "%d") {
		u = fmt.Sprintf(urlTemplate, year)
	}
	return &HSEApril{fetcher: fetcher, url: u, year: year}
}

func (h *HSEApril) Name() string {
	return HSEAprilName
}

func (h *HSEApril) Run(ctx context.Context) ([]record.Record, error) {
	doc, finalURL, err := h.fetcher.Document(ctx, h.url)
	if err != nil {
		return nil, err
	}
	pageURL := strings.TrimRight(finalURL, "/")

	title := nodeText(doc.Find("h1").First(), " ")
	if title == "" {
		title = nodeText(doc.Find("title").First(), " ")
	}
	if title == "" {
		title = fmt.Sprintf("HSE Conference %d", h.year)
	}

	main := doc.Find("main").First()
	if main.Length() == 0 {
		main = doc.Find("div").FilterFunction(func(_ int, div *goquery.Selection) bool {
			for _, class := range strings.Fields(div.AttrOr("class", "")) {
				if contentClassMarker.MatchString(class) {
					return true
				}
			}
			return false
		}).First()
	}
	if main.Length() == 0 {
		main = doc.Find("body").First()
	}

	details := nodeText(main, "\n")

	urls := []string{pageURL}
	main.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		urls = append(urls, resolveURL(finalURL, href))
	})

	return []record.Record{{
		Source:    HSEAprilName,
		OriginURL: pageURL,
		Title:     title,
		DateText:  firstMatch(hseAprilDate, details),
		Details:   details,
		URLs:      record.Unique(urls),
		Emails:    record.Unique(record.ExtractEmails(details)),
	}}, nil
}
