package source

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability"
	"github.com/PuerkitoBio/goquery"
)

// articleText extracts the readable body of a page as plain text lines.
// It is used for detail pages that carry no semantic content container.
func articleText(body []byte, pageURL string) (string, error) {
	if len(body) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse page URL: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return "", fmt.Errorf("no content extracted from %s", pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return "", fmt.Errorf("failed to parse extracted content: %w", err)
	}

	text := nodeText(doc.Selection, "\n")

	slog.Debug("Content extracted",
		"url", pageURL,
		"title", article.Title,
		"content_length", len(text))

	return text, nil
}

// detailBlock returns the text of a detail page: its first article or
// section, else its main element, with navigation stripped. Pages with none
// of these fall back to the readable body.
func detailBlock(doc *goquery.Document, body []byte, pageURL string) string {
	main := doc.Find("main").First()
	root := doc.Selection
	if main.Length() > 0 {
		root = main
	}
	root.Find("script, style, nav, footer").Remove()

	block := root.Find("article").First()
	if block.Length() == 0 {
		block = root.Find("section").First()
	}
	if block.Length() == 0 && main.Length() > 0 {
		block = main
	}
	if block.Length() > 0 {
		return nodeText(block, "\n")
	}

	if text, err := articleText(body, pageURL); err == nil && text != "" {
		return text
	}

	return nodeText(root, "\n")
}
