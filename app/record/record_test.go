package record

import (
	"strings"
	"testing"
)

func TestFingerprint_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		record   Record
		expected string
	}{
		{
			name: "primary URL from urls",
			record: Record{
				Source:    "s1",
				OriginURL: "http://x",
				Title:     "Econ Conf 2025",
				DateText:  "12 May 2025",
				Details:   "Call for papers",
				URLs:      []string{"http://x/a", "http://x/b"},
				Emails:    []string{"a@b.com"},
			},
			expected: "6c7d1af20f6c3cc316e2f8b14025f88994b2c7e34ac6e7376b5c7dfeb0569d2b",
		},
		{
			name: "cyrillic title and absent details",
			record: Record{
				Source:    "telegram_channel",
				OriginURL: "https://t.me/smuecon218/45",
				Title:     "  Конференция   «Экономика 2025» ",
			},
			expected: "77d38d052605e48c0995c2bd577b0e14cd225fca766b34ad1f1e6082522c66ad",
		},
		{
			name:     "all fields empty",
			record:   Record{},
			expected: "be5be69f55e91af25e54ecc2154d4da359b67b3b27e25f5cc0b3ff54eb74dff3",
		},
		{
			name: "details truncated to 500 characters",
			record: Record{
				Source:    "s1",
				OriginURL: "http://x",
				Title:     "T",
				Details:   strings.Repeat("Д", 600),
			},
			expected: "82f5a0e9dc1dc95b6e1bd74b68009fab50d1d090b093eaf5739c6e48d4438a5f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fingerprint(tt.record)
			if got != tt.expected {
				t.Errorf("Expected fingerprint %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	r := Record{Source: "s1", OriginURL: "http://x", Title: "Title", Details: "Body"}

	first := Fingerprint(r)
	second := Fingerprint(r)

	if first != second {
		t.Errorf("Expected identical fingerprints, got %s and %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("Expected 64 hex characters, got %d", len(first))
	}
}

func TestFingerprint_CaseAndWhitespaceInsensitive(t *testing.T) {
	base := Record{
		Source:    "s1",
		OriginURL: "http://x",
		Title:     "Econ Conf 2025",
		Details:   "Call for papers",
		URLs:      []string{"http://x/a"},
	}
	variant := Record{
		Source:    "S1",
		OriginURL: "http://elsewhere",
		Title:     "  econ   CONF\t2025 ",
		DateText:  "different date",
		Details:   "call  for\npapers",
		URLs:      []string{"HTTP://X/A", "http://x/other"},
		Emails:    []string{"someone@example.com"},
	}

	if Fingerprint(base) != Fingerprint(variant) {
		t.Error("Expected records differing only in case and whitespace to share a fingerprint")
	}
}

func TestFingerprint_DetailsTailIgnored(t *testing.T) {
	head := strings.Repeat("a", DetailsHashLimit)
	r1 := Record{Source: "s", OriginURL: "http://x", Details: head + " first tail"}
	r2 := Record{Source: "s", OriginURL: "http://x", Details: head + " second tail"}

	if Fingerprint(r1) != Fingerprint(r2) {
		t.Error("Expected details beyond the hash limit to be ignored")
	}
}

func TestFingerprint_FieldsDistinguish(t *testing.T) {
	base := Record{Source: "s", OriginURL: "http://x", Title: "T", Details: "D"}

	variants := map[string]Record{
		"source":  {Source: "other", OriginURL: "http://x", Title: "T", Details: "D"},
		"url":     {Source: "s", OriginURL: "http://y", Title: "T", Details: "D"},
		"title":   {Source: "s", OriginURL: "http://x", Title: "T2", Details: "D"},
		"details": {Source: "s", OriginURL: "http://x", Title: "T", Details: "D2"},
	}

	for name, v := range variants {
		if Fingerprint(v) == Fingerprint(base) {
			t.Errorf("Expected a change in %s to change the fingerprint", name)
		}
	}
}

func TestPrimaryURL(t *testing.T) {
	r := Record{OriginURL: "http://origin"}
	if r.PrimaryURL() != "http://origin" {
		t.Errorf("Expected origin URL fallback, got %s", r.PrimaryURL())
	}

	r.URLs = []string{"http://first", "http://second"}
	if r.PrimaryURL() != "http://first" {
		t.Errorf("Expected first URL, got %s", r.PrimaryURL())
	}
}
