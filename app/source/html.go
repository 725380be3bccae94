package source

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/lysyi3m/cfp-comb/app/record"
)

// RE2 has no Unicode-aware \b, so keyword patterns use explicit letter
// boundaries instead.
const (
	wordStart = `(?:^|[^\p{L}\p{N}_])`
	wordEnd   = `(?:$|[^\p{L}\p{N}_])`
)

var nonTextTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// nodeText joins the trimmed, non-empty text nodes under sel with sep.
func nodeText(sel *goquery.Selection, sep string) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, sep)
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		if nonTextTags[n.Data] {
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// textLines splits text into whitespace-collapsed, non-empty lines.
func textLines(text string) []string {
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = record.CollapseSpaces(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	return lines
}

// mainSelection returns the page's <main> element, or fallback when absent.
func mainSelection(doc *goquery.Document, fallback *goquery.Selection) *goquery.Selection {
	if main := doc.Find("main").First(); main.Length() > 0 {
		return main
	}
	return fallback
}

// resolveURL makes href absolute against base. Unparsable input yields "".
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

// siteRoot returns scheme://host/ of rawURL.
func siteRoot(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}

func firstMatch(re *regexp.Regexp, text string) string {
	return strings.TrimSpace(re.FindString(text))
}

// truncateRunes cuts s to at most n characters.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// stripPrefix removes prefix from s and trims the rest.
func stripPrefix(s, prefix string) string {
	if prefix != "" && strings.HasPrefix(s, prefix) {
		return strings.TrimSpace(s[len(prefix):])
	}
	return s
}

// uniqueFold drops lines repeated case-insensitively and caps the result.
func uniqueFold(lines []string, limit int) []string {
	seen := make(map[string]struct{}, len(lines))
	var out []string
	for _, ln := range lines {
		key := strings.ToLower(ln)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ln)
		if len(out) == limit {
			break
		}
	}
	return out
}

// nextElement returns the first element named tag that follows n in
// document order, including n's own descendants.
func nextElement(n *html.Node, tag string) *html.Node {
	for cur := nextNode(n); cur != nil; cur = nextNode(cur) {
		if cur.Type == html.ElementNode && cur.Data == tag {
			return cur
		}
	}
	return nil
}

func nextNode(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.NextSibling != nil {
			return cur.NextSibling
		}
	}
	return nil
}

// previousElement returns the closest element named one of tags that
// precedes n in document order, ancestors included.
func previousElement(n *html.Node, tags ...string) *html.Node {
	for cur := previousNode(n); cur != nil; cur = previousNode(cur) {
		if cur.Type != html.ElementNode {
			continue
		}
		for _, tag := range tags {
			if cur.Data == tag {
				return cur
			}
		}
	}
	return nil
}

func previousNode(n *html.Node) *html.Node {
	if n.PrevSibling == nil {
		return n.Parent
	}
	cur := n.PrevSibling
	for cur.LastChild != nil {
		cur = cur.LastChild
	}
	return cur
}
