package source

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/cfp-comb/app/record"
)

const (
	NaKonferenciiName       = "na_konferencii_category"
	DefaultNaKonferenciiURL = "https://na-konferencii.ru/conference-cat/obshhestvennyie-gumanitarnyie-nauki/jekonomika-upravlenie-finansy"
	DefaultMaxPages         = 30
	DefaultBackfillMaxPages = 60
)

var russianDateRange = regexp.MustCompile(
	`(?i)\d{1,2}\s+[а-яё]+(?:\s+\d{4})?(?:\s*[-–]\s*\d{1,2}\s+[а-яё]+(?:\s+\d{4})?)?(?:\s*г\.)?`)

// NaKonferencii crawls a paginated conference category, following "next
// page" links until a page cap, a repeated page, an empty page or the last
// page.
type NaKonferencii struct {
	fetcher     *Fetcher
	categoryURL string
	maxPages    int
}

func NewNaKonferencii(fetcher *Fetcher, categoryURL string, maxPages int) *NaKonferencii {
	return &NaKonferencii{
		fetcher:     fetcher,
		categoryURL: strings.TrimRight(categoryURL, "/"),
		maxPages:    maxPages,
	}
}

func (n *NaKonferencii) Name() string {
	return NaKonferenciiName
}

func (n *NaKonferencii) Run(ctx context.Context) ([]record.Record, error) {
	var records []record.Record
	visited := make(map[string]struct{})
	pageURL := n.categoryURL

	for page := 0; page < n.maxPages; page++ {
		if _, ok := visited[pageURL]; ok {
			slog.Debug("Page already visited, stopping", "source", NaKonferenciiName, "url", pageURL)
			break
		}
		visited[pageURL] = struct{}{}

		doc, _, err := n.fetcher.Document(ctx, pageURL)
		if err != nil {
			return nil, err
		}

		before := len(records)
		findCards(doc).Each(func(_ int, card *goquery.Selection) {
			if rec, ok := n.cardRecord(card, pageURL); ok {
				records = append(records, rec)
			}
		})

		if len(records) == before {
			break
		}

		next := nextPageURL(doc, pageURL)
		if next == "" {
			break
		}
		pageURL = next
	}

	return records, nil
}

func (n *NaKonferencii) cardRecord(card *goquery.Selection, pageURL string) (record.Record, bool) {
	var link *goquery.Selection
	for _, sel := range []string{"h2 a[href]", "h3 a[href]", "a[href]"} {
		if link = card.Find(sel).First(); link.Length() > 0 {
			break
		}
	}
	if link.Length() == 0 {
		return record.Record{}, false
	}

	title := nodeText(link, " ")
	href := resolveURL(n.categoryURL+"/", link.AttrOr("href", ""))
	if title == "" || href == "" {
		return record.Record{}, false
	}

	// breadcrumb and menu links back into the category tree
	if strings.Contains(href, "conference-cat") && strings.HasPrefix(strings.ToLower(title), "категория") {
		return record.Record{}, false
	}

	text := nodeText(card, "\n")

	return record.Record{
		Source:    NaKonferenciiName,
		OriginURL: pageURL,
		Title:     title,
		DateText:  firstMatch(russianDateRange, text),
		Details:   stripPrefix(text, title),
		URLs:      []string{href},
		Emails:    []string{},
	}, true
}

func findCards(doc *goquery.Document) *goquery.Selection {
	if cards := doc.Find("article"); cards.Length() > 0 {
		return cards
	}
	if cards := doc.Find(".post, .type-post, .conference, .conf, .item"); cards.Length() > 0 {
		return cards
	}

	main := doc.Find("main").First()
	if main.Length() == 0 {
		main = doc.Find(".content").First()
	}
	if main.Length() == 0 {
		main = doc.Find("body").First()
	}
	return main.Find("h2, h3")
}

// nextPageURL tries rel=next, then WordPress pagination, then link text.
func nextPageURL(doc *goquery.Document, current string) string {
	if href := doc.Find("a[rel~=next]").First().AttrOr("href", ""); href != "" {
		return resolveURL(current, href)
	}

	if href := doc.Find("a.next.page-numbers[href]").First().AttrOr("href", ""); href != "" {
		return resolveURL(current, href)
	}

	var next string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := strings.ToLower(nodeText(a, " "))
		if strings.Contains(text, "след") || strings.Contains(text, "next") {
			next = resolveURL(current, a.AttrOr("href", ""))
			return false
		}
		return true
	})
	return next
}
