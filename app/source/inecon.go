package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/cfp-comb/app/record"
)

const IneconName = "inecon_conferences"

// DefaultIneconURLs are tried in order; the bare host is blocked less often.
var DefaultIneconURLs = []string{
	"https://inecon.org/nauchnaya-zhizn/konferenczii/",
	"https://www.inecon.org/nauchnaya-zhizn/konferenczii/",
}

var (
	ineconDatePrefix = regexp.MustCompile(`(?i)^\s*\d{1,2}\s*(?:[-–—]{1,2}\s*\d{1,2}\s*)?[а-яё]+\s+\d{4}\s*г\.?\s*`)

	ineconPositive = regexp.MustCompile(`(?i)(конференц|конгресс|школа|симпозиум|форум|workshop|воркшоп)`)
	ineconNegative = regexp.MustCompile(`(?i)(семинар|круглый\s+стол|заседани)`)

	ineconDeadlineHint = regexp.MustCompile(`(?i)(deadline|дедлайн|до\s+\d{1,2}\s+[а-яё]+|` + wordStart + `by\s+\d{1,2}|` +
		`submission|submit|abstract|paper|registration|регистрац|подач|при[её]м\s+заявок|заявк)`)
)

// Inecon reads the upcoming events list of the Institute of Economics and
// follows every conference-like entry to its page.
type Inecon struct {
	fetcher  *Fetcher
	listURLs []string
}

func NewInecon(fetcher *Fetcher, listURLs []string) *Inecon {
	return &Inecon{fetcher: fetcher, listURLs: listURLs}
}

func (i *Inecon) Name() string {
	return IneconName
}

func (i *Inecon) Run(ctx context.Context) ([]record.Record, error) {
	doc, listURL, err := i.fetchList(ctx)
	if err != nil {
		return nil, err
	}

	var records []record.Record
	for _, l := range i.listLinks(doc, listURL) {
		rec, err := i.detailRecord(ctx, l, listURL)
		if err != nil {
			slog.Warn("Skipping conference page", "source", IneconName, "url", l.URL, "error", err)
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// fetchList returns the first list page that can be fetched.
func (i *Inecon) fetchList(ctx context.Context) (*goquery.Document, string, error) {
	lastErr := fmt.Errorf("no list URLs configured")
	for _, u := range i.listURLs {
		doc, _, err := i.fetcher.DocumentWithHeaders(ctx, u, refererHeader(u))
		if err == nil {
			return doc, u, nil
		}
		slog.Debug("List page unavailable", "source", IneconName, "url", u, "error", err)
		lastErr = err
	}
	return nil, "", lastErr
}

// listLinks reads the list under the "Предстоящие" heading. When it yields
// nothing, every link titled by its preceding h3/h4 heading is considered.
func (i *Inecon) listLinks(doc *goquery.Document, listURL string) []link {
	main := mainSelection(doc, doc.Selection)

	var links []link
	upcoming := main.Find("h2, h3").FilterFunction(func(_ int, h *goquery.Selection) bool {
		return strings.Contains(record.CollapseSpaces(nodeText(h, " ")), "Предстоящие")
	}).First()

	if upcoming.Length() > 0 {
		if ul := nextElement(upcoming.Nodes[0], "ul"); ul != nil {
			goquery.NewDocumentFromNode(ul).Find("a[href]").Each(func(_ int, a *goquery.Selection) {
				title := record.CollapseSpaces(nodeText(a, " "))
				if title != "" && isIneconTarget(title) {
					links = append(links, link{Title: title, URL: resolveURL(listURL, a.AttrOr("href", ""))})
				}
			})
		}
	}

	if len(links) == 0 {
		main.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			heading := previousElement(a.Nodes[0], "h3", "h4")
			if heading == nil {
				return
			}
			title := record.CollapseSpaces(nodeText(goquery.NewDocumentFromNode(heading).Selection, " "))
			if title != "" && isIneconTarget(title) {
				links = append(links, link{Title: title, URL: resolveURL(listURL, a.AttrOr("href", ""))})
			}
		})
	}

	return uniqueLinks(links)
}

func (i *Inecon) detailRecord(ctx context.Context, l link, listURL string) (record.Record, error) {
	doc, _, err := i.fetcher.DocumentWithHeaders(ctx, l.URL, refererHeader(l.URL))
	if err != nil {
		return record.Record{}, err
	}

	main := mainSelection(doc, doc.Selection)
	main.Find("script, style, nav, footer").Remove()

	title := record.CollapseSpaces(nodeText(main.Find("h1").First(), " "))
	if title == "" {
		title = l.Title
	}
	if title == "" {
		title = l.URL
	}

	text := nodeText(main, "\n")

	date := ineconDate(title)
	if date == "" {
		date = ineconDate(l.Title)
	}

	urls := []string{l.URL}
	main.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href != "" && !strings.HasPrefix(href, "#") {
			urls = append(urls, resolveURL(l.URL, href))
		}
	})
	urls = append(urls, record.ExtractURLs(text)...)

	var deadlines []string
	for _, ln := range textLines(text) {
		if ineconDeadlineHint.MatchString(ln) {
			deadlines = append(deadlines, ln)
		}
	}

	return record.Record{
		Source:    IneconName,
		OriginURL: listURL,
		Title:     title,
		DateText:  date,
		Details:   withDeadlines(uniqueFold(deadlines, deadlineLinesLimit), text),
		URLs:      record.Unique(urls),
		Emails:    record.Unique(record.ExtractEmails(text)),
	}, nil
}

func isIneconTarget(title string) bool {
	if ineconNegative.MatchString(title) {
		return false
	}
	return ineconPositive.MatchString(title)
}

// ineconDate returns the leading date of a title like "12-14 ноября 2025 г. ...".
func ineconDate(title string) string {
	return record.CollapseSpaces(ineconDatePrefix.FindString(title))
}

func refererHeader(pageURL string) http.Header {
	root := siteRoot(pageURL)
	if root == "" {
		return nil
	}
	return http.Header{"Referer": []string{root}}
}
