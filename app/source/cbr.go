package source

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/cfp-comb/app/record"
)

const (
	CBRName       = "cbr_ec_research_activity"
	DefaultCBRURL = "https://cbr.ru/ec_research/activity/"

	cbrActivityPath = "/ec_research/activity/"
)

var cbrDate = regexp.MustCompile(`(?i)^\d{1,2}\s+[а-яё]+(?:\s*[-–]\s*\d{1,2}\s+[а-яё]+)?\s+\d{4}$`)

// CBR reads the central bank research events list and keeps contests and
// conferences.
type CBR struct {
	fetcher *Fetcher
	url     string
}

func NewCBR(fetcher *Fetcher, url string) *CBR {
	return &CBR{fetcher: fetcher, url: url}
}

func (c *CBR) Name() string {
	return CBRName
}

func (c *CBR) Run(ctx context.Context) ([]record.Record, error) {
	doc, _, err := c.fetcher.Document(ctx, c.url)
	if err != nil {
		return nil, err
	}

	var records []record.Record
	mainSelection(doc, doc.Selection).Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if !strings.Contains(href, cbrActivityPath) {
			return
		}

		title := record.CollapseSpaces(nodeText(a, " "))
		if title == "" {
			return
		}

		container := a.ParentsFiltered("li, div, article, section").First()
		if container.Length() == 0 {
			container = a.Parent()
		}
		lines := textLines(nodeText(container, "\n"))

		var date string
		for _, ln := range lines {
			if cbrDate.MatchString(ln) {
				date = ln
				break
			}
		}

		kind := eventKind(lines, title, date)
		if !isCBRTarget(title, kind) {
			return
		}

		details := kind
		if strings.EqualFold(details, title) {
			details = ""
		}

		records = append(records, record.Record{
			Source:    CBRName,
			OriginURL: c.url,
			Title:     title,
			DateText:  date,
			Details:   details,
			URLs:      []string{resolveURL(c.url, href)},
			Emails:    []string{},
		})
	})

	return records, nil
}

// eventKind picks the shortest of the last three lines other than the title
// and the date. Cards end with a short type label such as "Конференция".
func eventKind(lines []string, title, date string) string {
	var tail []string
	for _, ln := range lines {
		lower := strings.ToLower(ln)
		if lower == strings.ToLower(title) || lower == strings.ToLower(date) {
			continue
		}
		tail = append(tail, ln)
	}
	if len(tail) == 0 {
		return ""
	}
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}

	kind := tail[0]
	for _, ln := range tail[1:] {
		if utf8.RuneCountInString(ln) < utf8.RuneCountInString(kind) {
			kind = ln
		}
	}
	return kind
}

func isCBRTarget(title, kind string) bool {
	text := strings.ToLower(title + "\n" + kind)
	return strings.Contains(text, "конкурс") || strings.Contains(text, "конференц")
}
