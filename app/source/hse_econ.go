package source

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/cfp-comb/app/record"
)

const (
	HSEEconName       = "hse_econ_science_conferences"
	DefaultHSEEconURL = "https://economics.hse.ru/science_conferences"

	deadlineLineLimit  = 220
	deadlineLinesLimit = 30
)

var (
	hseEconDate = regexp.MustCompile(`(?i)` + strings.Join([]string{
		`\d{1,2}\s*[–-]\s*\d{1,2}\s+[A-Za-z]+\s+\d{4}`,
		`\d{1,2}\s+[A-Za-z]+\s+\d{4}`,
		`\d{1,2}\s*[–-]\s*\d{1,2}\s+[а-яё]+\s+\d{4}`,
		`\d{1,2}\s+[а-яё]+\s+\d{4}`,
	}, "|"))

	hseEconDeadlineHint = regexp.MustCompile(`(?i)(deadline|дедлайн|submit|submission|abstract|paper|application|registration|` +
		`заявк|подач|прием|регистрац|до\s+\d{1,2}\s+[а-яё]+|` + wordStart + `by\s+\d{1,2})`)
)

// HSEEcon follows the conference links of the HSE economics faculty list
// page and reads each conference page. Pages that fail are skipped.
type HSEEcon struct {
	fetcher *Fetcher
	listURL string
}

func NewHSEEcon(fetcher *Fetcher, listURL string) *HSEEcon {
	return &HSEEcon{fetcher: fetcher, listURL: listURL}
}

func (h *HSEEcon) Name() string {
	return HSEEconName
}

func (h *HSEEcon) Run(ctx context.Context) ([]record.Record, error) {
	doc, _, err := h.fetcher.Document(ctx, h.listURL)
	if err != nil {
		return nil, err
	}

	var records []record.Record
	for _, l := range h.listLinks(doc) {
		rec, err := h.detailRecord(ctx, l)
		if err != nil {
			slog.Warn("Skipping conference page", "source", HSEEconName, "url", l.URL, "error", err)
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// listLinks takes the links of the block holding the page heading, or every
// link of the main content when the page has no heading.
func (h *HSEEcon) listLinks(doc *goquery.Document) []link {
	main := mainSelection(doc, doc.Selection)

	container := main
	if h1 := main.Find("h1").First(); h1.Length() > 0 {
		if parent := h1.Parent(); parent.Length() > 0 {
			container = parent
		}
	}

	var links []link
	container.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		title := record.CollapseSpaces(nodeText(a, " "))
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if title == "" || href == "" || strings.HasPrefix(href, "#") {
			return
		}
		links = append(links, link{Title: title, URL: resolveURL(h.listURL, href)})
	})

	return uniqueLinks(links)
}

func (h *HSEEcon) detailRecord(ctx context.Context, l link) (record.Record, error) {
	page, err := h.fetcher.Get(ctx, l.URL)
	if err != nil {
		return record.Record{}, err
	}
	doc, err := page.Document()
	if err != nil {
		return record.Record{}, err
	}

	title := record.CollapseSpaces(nodeText(doc.Find("h1").First(), " "))
	if title == "" {
		title = l.Title
	}
	if title == "" {
		title = l.URL
	}

	text := detailBlock(doc, page.Body, page.URL)

	return record.Record{
		Source:    HSEEconName,
		OriginURL: h.listURL,
		Title:     title,
		DateText:  firstMatch(hseEconDate, text),
		Details:   withDeadlines(h.deadlines(text), text),
		URLs:      []string{l.URL},
		Emails:    record.Unique(record.ExtractEmails(text)),
	}, nil
}

// deadlines keeps hinted lines that carry a date or are short enough to be
// a single statement.
func (h *HSEEcon) deadlines(text string) []string {
	var hits []string
	for _, ln := range textLines(text) {
		if !hseEconDeadlineHint.MatchString(ln) {
			continue
		}
		if hseEconDate.MatchString(ln) || utf8.RuneCountInString(ln) <= deadlineLineLimit {
			hits = append(hits, ln)
		}
	}
	return uniqueFold(hits, deadlineLinesLimit)
}

// withDeadlines prefixes text with a DEADLINES block when there are any.
func withDeadlines(deadlines []string, text string) string {
	if len(deadlines) == 0 {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace("DEADLINES:\n" + strings.Join(deadlines, "\n") + "\n\n" + text)
}
