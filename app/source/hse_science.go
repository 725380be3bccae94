package source

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/lysyi3m/cfp-comb/app/record"
)

const (
	HSEScienceName       = "hse_science_hseconf"
	DefaultHSEScienceURL = "https://www.hse.ru/science/HSEconf"
)

var (
	hseScienceDate = regexp.MustCompile(`(?i)\d{1,2}(?:\s*[-–]\s*\d{1,2})?\s+[а-яё]+`)

	// month names are rendered as h4 section headers
	monthHeaders = map[string]bool{
		"ЯНВАРЬ": true, "ФЕВРАЛЬ": true, "МАРТ": true, "АПРЕЛЬ": true,
		"МАЙ": true, "ИЮНЬ": true, "ИЮЛЬ": true, "АВГУСТ": true,
		"СЕНТЯБРЬ": true, "ОКТЯБРЬ": true, "НОЯБРЬ": true, "ДЕКАБРЬ": true,
	}
)

// HSEScience reads the HSE conference calendar, one record per h4 entry.
type HSEScience struct {
	fetcher *Fetcher
	url     string
}

func NewHSEScience(fetcher *Fetcher, url string) *HSEScience {
	return &HSEScience{fetcher: fetcher, url: url}
}

func (h *HSEScience) Name() string {
	return HSEScienceName
}

func (h *HSEScience) Run(ctx context.Context) ([]record.Record, error) {
	doc, _, err := h.fetcher.Document(ctx, h.url)
	if err != nil {
		return nil, err
	}

	var records []record.Record
	doc.Find("h4").Each(func(_ int, heading *goquery.Selection) {
		title := nodeText(heading, " ")
		if title == "" || monthHeaders[strings.ToUpper(strings.TrimSpace(title))] {
			return
		}

		lines, hrefs := h.blockUntilNextHeading(heading)

		var date string
		var rest []string
		for _, ln := range lines {
			if date == "" && hseScienceDate.MatchString(ln) {
				date = strings.TrimSpace(ln)
				continue
			}
			rest = append(rest, ln)
		}

		blockText := strings.Join(append([]string{title}, lines...), "\n")
		records = append(records, record.Record{
			Source:    HSEScienceName,
			OriginURL: h.url,
			Title:     title,
			DateText:  date,
			Details:   strings.TrimSpace(strings.Join(rest, "\n")),
			URLs:      record.Unique(append(hrefs, record.ExtractURLs(blockText)...)),
			Emails:    record.Unique(record.ExtractEmails(blockText)),
		})
	})

	return records, nil
}

// blockUntilNextHeading collects the text lines and links of the siblings
// that follow heading up to the next h4.
func (h *HSEScience) blockUntilNextHeading(heading *goquery.Selection) ([]string, []string) {
	var lines, hrefs []string

	for sib := heading.Nodes[0].NextSibling; sib != nil; sib = sib.NextSibling {
		switch sib.Type {
		case html.TextNode:
			if t := strings.TrimSpace(sib.Data); t != "" {
				lines = append(lines, t)
			}
		case html.ElementNode:
			if sib.Data == "h4" {
				return dropMoreLinks(lines), hrefs
			}

			sel := goquery.NewDocumentFromNode(sib).Selection
			sel.Find("a[href]").AddBackFiltered("a[href]").Each(func(_ int, a *goquery.Selection) {
				href := strings.TrimSpace(a.AttrOr("href", ""))
				if href != "" && href != "#" {
					hrefs = append(hrefs, resolveURL(h.url, href))
				}
			})

			if t := nodeText(sel, " "); t != "" {
				lines = append(lines, t)
			}
		}
	}

	return dropMoreLinks(lines), hrefs
}

func dropMoreLinks(lines []string) []string {
	out := lines[:0]
	for _, ln := range lines {
		if ln = strings.TrimSpace(ln); ln != "" && ln != "Подробнее" {
			out = append(out, ln)
		}
	}
	return out
}
