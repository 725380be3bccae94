package record

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DetailsHashLimit is the number of characters of normalized details that
// take part in the fingerprint.
const DetailsHashLimit = 500

// Record is one announcement found by a source adapter. Empty strings mean
// the field was not found on the page.
type Record struct {
	Source    string
	OriginURL string
	Title     string
	DateText  string
	Details   string
	URLs      []string
	Emails    []string
}

// PrimaryURL is the first extracted URL, or the page the record came from.
func (r Record) PrimaryURL() string {
	if len(r.URLs) > 0 {
		return r.URLs[0]
	}
	return r.OriginURL
}

// Fingerprint returns the hex SHA-256 of the record's normalized source,
// primary URL, title and leading details. It is the deduplication key of
// the store, so changing it invalidates every stored row.
func Fingerprint(r Record) string {
	details := []rune(normalize(r.Details))
	if len(details) > DetailsHashLimit {
		details = details[:DetailsHashLimit]
	}

	payload := strings.Join([]string{
		normalize(r.Source),
		normalize(r.PrimaryURL()),
		normalize(r.Title),
		string(details),
	}, "|")

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func normalize(s string) string {
	if s == "" {
		return ""
	}
	// cases.Caser is stateful, a fresh one per call keeps Fingerprint safe
	// for concurrent use.
	lower := cases.Lower(language.Und).String(s)
	return strings.Join(strings.Fields(lower), " ")
}
