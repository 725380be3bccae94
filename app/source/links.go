package source

// link is a detail page discovered on a list page.
type link struct {
	Title string
	URL   string
}

// uniqueLinks keeps the first title seen for each URL.
func uniqueLinks(links []link) []link {
	seen := make(map[string]struct{}, len(links))
	var out []link
	for _, l := range links {
		if l.URL == "" {
			continue
		}
		if _, ok := seen[l.URL]; ok {
			continue
		}
		seen[l.URL] = struct{}{}
		out = append(out, l)
	}
	return out
}
