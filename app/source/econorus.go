package source

import (
	"context"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/cfp-comb/app/record"
)

const (
	EconorusName       = "econorus_conferences"
	DefaultEconorusURL = "https://www.econorus.org/conference.phtml"
)

var (
	econorusDate = regexp.MustCompile(`(?i)\d{1,2}\s*(?:[-–]\s*\d{1,2}\s*)?[а-яё]+\s*\d{4}\s*г\.?`)

	// keeps menu links out
	econorusTitle = regexp.MustCompile(`(?i)конференц|симпозиум|конгресс|воркшоп|workshop|forum|форум|кругл(?:ый|ые)\s+стол`)
)

// Econorus lists the conference links of the Russian economic association
// page, which is served in windows-1251.
type Econorus struct {
	fetcher *Fetcher
	url     string
}

func NewEconorus(fetcher *Fetcher, url string) *Econorus {
	return &Econorus{fetcher: fetcher, url: url}
}

func (e *Econorus) Name() string {
	return EconorusName
}

func (e *Econorus) Run(ctx context.Context) ([]record.Record, error) {
	doc, _, err := e.fetcher.Document(ctx, e.url)
	if err != nil {
		return nil, err
	}

	var records []record.Record
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		title := nodeText(a, " ")
		if title == "" || !econorusTitle.MatchString(title) {
			return
		}

		line := title
		if parent := a.Parent(); parent.Length() > 0 {
			line = record.CollapseSpaces(nodeText(parent, " "))
		}

		records = append(records, record.Record{
			Source:    EconorusName,
			OriginURL: e.url,
			Title:     title,
			DateText:  firstMatch(econorusDate, line),
			Details:   line,
			URLs:      []string{resolveURL(e.url, a.AttrOr("href", ""))},
			Emails:    []string{},
		})
	})

	return records, nil
}
