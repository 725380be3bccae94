package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/cfp-comb/app/cfg"
	"github.com/lysyi3m/cfp-comb/app/database"
)

const (
	AnnouncementsName  = "announcements"
	AnnouncementsTitle = "CFP Comb: conference announcements"
)

// Generator renders stored records as an RSS 2.0 channel, newest first.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(records []database.StoredRecord) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	selfLink := g.selfLink()

	g.writeElement(&buf, "title", AnnouncementsTitle, 4)
	g.writeElement(&buf, "link", selfLink, 4)
	g.writeElement(&buf, "description", "Conference and call-for-papers announcements collected from the configured sources", 4)
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now().In(time.Local)
	if len(records) > 0 {
		lastBuildDate = records[0].FetchedAt.In(time.Local)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("CFP-Comb/%s", cfg.Get().Version), 4)

	for _, stored := range records {
		g.writeItem(&buf, stored)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) selfLink() string {
	if cfg.Get().BaseUrl != "" {
		return fmt.Sprintf("%s/feeds/%s", strings.TrimRight(cfg.Get().BaseUrl, "/"), AnnouncementsName)
	}
	return fmt.Sprintf("http://localhost:%s/feeds/%s", cmp.Or(cfg.Get().Port, "8080"), AnnouncementsName)
}

func (g *Generator) writeItem(buf *bytes.Buffer, stored database.StoredRecord) {
	rec := stored.Record

	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(stored.Fingerprint))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", cmp.Or(rec.Title, "Untitled announcement"), 6)
	g.writeElement(buf, "link", rec.PrimaryURL(), 6)
	g.writeElement(buf, "description", g.description(rec.DateText, rec.Details), 6)
	g.writeElement(buf, "pubDate", stored.FetchedAt.In(time.Local).Format(time.RFC1123Z), 6)
	g.writeElement(buf, "category", rec.Source, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) description(dateText, details string) string {
	switch {
	case dateText == "":
		return cmp.Or(details, "No description available")
	case details == "":
		return dateText
	default:
		return dateText + "\n\n" + details
	}
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
