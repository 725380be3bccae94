package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func TestEconorusDecodesWindows1251Listing(t *testing.T) {
	page := `<html><head><meta http-equiv="Content-Type" content="text/html; charset=windows-1251"></head><body>
<p>15-16 мая 2025 г. <a href="/conf1.phtml">Международная конференция по экономике</a> (Москва)</p>
<p><a href="/about.phtml">О нас</a></p>
</body></html>`
	encoded, err := charmap.Windows1251.NewEncoder().String(page)
	if err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1251")
		w.Write([]byte(encoded))
	}))
	defer server.Close()

	url := server.URL + "/conference.phtml"
	records, err := NewEconorus(newTestFetcher(), url).Run(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.Title != "Международная конференция по экономике" {
		t.Errorf("Expected decoded title, got '%s'", rec.Title)
	}
	if rec.DateText != "15-16 мая 2025 г." {
		t.Errorf("Expected date '15-16 мая 2025 г.', got '%s'", rec.DateText)
	}
	if rec.Details != "15-16 мая 2025 г. Международная конференция по экономике (Москва)" {
		t.Errorf("Expected surrounding line as details, got '%s'", rec.Details)
	}
	if len(rec.URLs) != 1 || rec.URLs[0] != server.URL+"/conf1.phtml" {
		t.Errorf("Expected resolved link, got %v", rec.URLs)
	}
	if rec.OriginURL != url {
		t.Errorf("Expected origin '%s', got '%s'", url, rec.OriginURL)
	}
}

func TestHSEAprilReadsLandingPage(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"/en/2026/": `<html><head><title>April Conference</title></head><body>
<header><a href="/menu">Menu</a></header>
<main>
<h1>XXVII April International Academic Conference</h1>
<p>The conference will be held on 7 April 2026.</p>
<p>Email: april@hse.ru</p>
<a href="/en/2026/program">Program</a>
<a href="#">Top</a>
</main></body></html>`,
	})

	adapter := NewHSEApril(newTestFetcher(), server.URL+"/en/%d/", 2026)
	records, err := adapter.Run(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.Title != "XXVII April International Academic Conference" {
		t.Errorf("Expected h1 title, got '%s'", rec.Title)
	}
	if rec.DateText != "7 April 2026" {
		t.Errorf("Expected date '7 April 2026', got '%s'", rec.DateText)
	}
	if rec.OriginURL != server.URL+"/en/2026" {
		t.Errorf("Expected origin without trailing slash, got '%s'", rec.OriginURL)
	}
	wantURLs := []string{server.URL + "/en/2026", server.URL + "/en/2026/program"}
	if strings.Join(rec.URLs, " ") != strings.Join(wantURLs, " ") {
		t.Errorf("Expected URLs %v, got %v", wantURLs, rec.URLs)
	}
	if len(rec.Emails) != 1 || rec.Emails[0] != "april@hse.ru" {
		t.Errorf("Expected email 'april@hse.ru', got %v", rec.Emails)
	}
	if strings.Contains(rec.Details, "Menu") {
		t.Errorf("Expected details limited to main content, got '%s'", rec.Details)
	}
}

func TestHSEAprilFallsBackToGeneratedTitle(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"/en/2030": `<html><body><div class="page-content"><p>Coming soon</p></div></body></html>`,
	})

	records, err := NewHSEApril(newTestFetcher(), server.URL+"/en/%d", 2030).Run(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if records[0].Title != "HSE Conference 2030" {
		t.Errorf("Expected generated title, got '%s'", records[0].Title)
	}
	if records[0].Details != "Coming soon" {
		t.Errorf("Expected content block text, got '%s'", records[0].Details)
	}
}

func TestHSEConfStudentsSplitsHeadings(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"/ric/confstudents": `<html><body>
<div class="post"><h4>Student Conference on Linguistics - 20 April 2026</h4>
<p>Applications: https://lang.hse.ru/apply</p><p>Contact: ric@hse.ru</p></div>
<div class="post"><h4>Workshop without date</h4><p>Details soon</p></div>
</body></html>`,
	})

	records, err := NewHSEConfStudents(newTestFetcher(), server.URL+"/ric/confstudents").Run(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.Title != "Student Conference on Linguistics" {
		t.Errorf("Expected title before separator, got '%s'", first.Title)
	}
	if first.DateText != "20 April 2026" {
		t.Errorf("Expected date after separator, got '%s'", first.DateText)
	}
	if first.Details != "Applications: https://lang.hse.ru/apply\nContact: ric@hse.ru" {
		t.Errorf("Expected block without heading, got '%s'", first.Details)
	}
	if len(first.URLs) != 1 || first.URLs[0] != "https://lang.hse.ru/apply" {
		t.Errorf("Expected URL from text, got %v", first.URLs)
	}
	if len(first.Emails) != 1 || first.Emails[0] != "ric@hse.ru" {
		t.Errorf("Expected email 'ric@hse.ru', got %v", first.Emails)
	}

	if records[1].DateText != "" || records[1].Title != "Workshop without date" {
		t.Errorf("Expected undated heading kept whole, got %+v", records[1])
	}
}

func TestSplitHeading(t *testing.T) {
	tests := []struct {
		heading   string
		wantTitle string
		wantDate  string
	}{
		{"Conf - A - 1 May", "Conf - A", "1 May"},
		{"Conf", "Conf", ""},
		{"Conf-1 May", "Conf-1 May", ""},
	}

	for _, tt := range tests {
		title, date := splitHeading(tt.heading)
		if title != tt.wantTitle || date != tt.wantDate {
			t.Errorf("Expected ('%s', '%s') for '%s', got ('%s', '%s')", tt.wantTitle, tt.wantDate, tt.heading, title, date)
		}
	}
}

func TestHSEScienceGroupsBlocksByHeading(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"/science/HSEconf": `<html><body><div class="content">
<h4>МАЙ</h4>
<h4>Конференция «Экономическая политика»</h4>
<p>15–16 мая</p>
Москва, Покровский бульвар
<p><a href="/conf/policy">Подробнее</a></p>
<p>Контакт: policy@hse.ru</p>
<h4>Семинар по макроэкономике</h4>
<p>Онлайн</p>
</div></body></html>`,
	})

	url := server.URL + "/science/HSEconf"
	records, err := NewHSEScience(newTestFetcher(), url).Run(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Expected 2 records (month header skipped), got %d", len(records))
	}

	rec := records[0]
	if rec.Title != "Конференция «Экономическая политика»" {
		t.Errorf("Expected conference title, got '%s'", rec.Title)
	}
	if rec.DateText != "15–16 мая" {
		t.Errorf("Expected date '15–16 мая', got '%s'", rec.DateText)
	}
	if rec.Details != "Москва, Покровский бульвар\nКонтакт: policy@hse.ru" {
		t.Errorf("Expected remaining lines as details, got '%s'", rec.Details)
	}
	if len(rec.URLs) != 1 || rec.URLs[0] != server.URL+"/conf/policy" {
		t.Errorf("Expected block link, got %v", rec.URLs)
	}
	if len(rec.Emails) != 1 || rec.Emails[0] != "policy@hse.ru" {
		t.Errorf("Expected email 'policy@hse.ru', got %v", rec.Emails)
	}

	if records[1].DateText != "" || records[1].Details != "Онлайн" {
		t.Errorf("Expected undated second block, got %+v", records[1])
	}
}

func TestCBRKeepsContestsAndConferences(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"/ec_research/activity/": `<html><body><main>
<div class="item"><div>12 мая 2025</div><a href="/ec_research/activity/101/">Конференция по денежно-кредитной политике</a><div>Гибридный формат</div><div>Конференция</div></div>
<div class="item"><div>3 июня 2025</div><a href="/ec_research/activity/102/">Исследовательский семинар</a><div>Семинар</div></div>
<div class="item"><div>1 июля 2025</div><a href="/ec_research/activity/103/">Открытый конкурс исследований</a><div>Онлайн</div></div>
<a href="/about/">О банке</a>
</main></body></html>`,
	})

	url := server.URL + "/ec_research/activity/"
	records, err := NewCBR(newTestFetcher(), url).Run(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.DateText != "12 мая 2025" {
		t.Errorf("Expected date '12 мая 2025', got '%s'", first.DateText)
	}
	if first.Details != "Конференция" {
		t.Errorf("Expected shortest tail line as kind, got '%s'", first.Details)
	}
	if len(first.URLs) != 1 || first.URLs[0] != server.URL+"/ec_research/activity/101/" {
		t.Errorf("Expected card link, got %v", first.URLs)
	}

	second := records[1]
	if second.Title != "Открытый конкурс исследований" {
		t.Errorf("Expected contest record, got '%s'", second.Title)
	}
	if second.Details != "Онлайн" {
		t.Errorf("Expected kind 'Онлайн', got '%s'", second.Details)
	}
}

func TestEventKind(t *testing.T) {
	lines := []string{"12 мая 2025", "Title", "Очень длинная строка", "Онлайн", "Конференция"}
	if got := eventKind(lines, "title", "12 мая 2025"); got != "Онлайн" {
		t.Errorf("Expected 'Онлайн', got '%s'", got)
	}
	if got := eventKind([]string{"Title"}, "Title", ""); got != "" {
		t.Errorf("Expected empty kind, got '%s'", got)
	}
}
