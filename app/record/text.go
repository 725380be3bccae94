package record

import (
	"regexp"
	"strings"
)

var (
	urlPattern   = regexp.MustCompile(`https?://[^\s<>"]+`)
	emailPattern = regexp.MustCompile(`[\p{L}\p{N}_.-]+@[\p{L}\p{N}_.-]+\.[\p{L}\p{N}_]+`)
)

// ExtractURLs returns every http(s) URL mentioned in text, in order of
// appearance, with trailing punctuation removed.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ").,;»")
		if m != "" {
			urls = append(urls, m)
		}
	}
	return urls
}

// ExtractEmails returns every email address found in text, in order of
// appearance.
func ExtractEmails(text string) []string {
	return emailPattern.FindAllString(text, -1)
}

// Unique drops repeated and empty values, keeping the first occurrence.
func Unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// CollapseSpaces trims s and replaces whitespace runs with one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
