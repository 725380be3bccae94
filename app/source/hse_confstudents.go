package source

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/cfp-comb/app/record"
)

const (
	HSEConfStudentsName       = "hse_confstudents"
	DefaultHSEConfStudentsURL = "https://lang.hse.ru/ric/confstudents"
)

// HSEConfStudents reads the student conference list where every heading
// reads "<title> - <date>".
type HSEConfStudents struct {
	fetcher *Fetcher
	url     string
}

func NewHSEConfStudents(fetcher *Fetcher, url string) *HSEConfStudents {
	return &HSEConfStudents{fetcher: fetcher, url: url}
}

func (h *HSEConfStudents) Name() string {
	return HSEConfStudentsName
}

func (h *HSEConfStudents) Run(ctx context.Context) ([]record.Record, error) {
	doc, _, err := h.fetcher.Document(ctx, h.url)
	if err != nil {
		return nil, err
	}

	headings := doc.Find("h4")
	if headings.Length() == 0 {
		headings = doc.Find("h3")
	}

	var records []record.Record
	headings.Each(func(_ int, heading *goquery.Selection) {
		text := nodeText(heading, " ")
		if text == "" {
			return
		}

		container := heading.Parent().Closest("li, div, section")
		if container.Length() == 0 {
			container = heading.Parent()
		}
		block := nodeText(container, "\n")

		title, date := splitHeading(text)
		records = append(records, record.Record{
			Source:    HSEConfStudentsName,
			OriginURL: h.url,
			Title:     title,
			DateText:  date,
			Details:   stripPrefix(block, text),
			URLs:      record.Unique(record.ExtractURLs(block)),
			Emails:    record.Unique(record.ExtractEmails(block)),
		})
	})

	return records, nil
}

// splitHeading splits "<title> - <date>" on the last separator.
func splitHeading(heading string) (string, string) {
	i := strings.LastIndex(heading, " - ")
	if i < 0 {
		return strings.TrimSpace(heading), ""
	}
	return strings.TrimSpace(heading[:i]), strings.TrimSpace(heading[i+3:])
}
