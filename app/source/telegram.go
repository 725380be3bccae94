package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/cfp-comb/app/record"
)

const (
	TelegramName            = "telegram_channel"
	DefaultTelegramBaseURL  = "https://t.me/s"
	DefaultTelegramChannel  = "@smuecon218"
	DefaultMaxMessages      = 200
	DefaultBackfillMessages = 1200
	DefaultPageDelay        = 800 * time.Millisecond

	telegramTitleLimit = 300
)

var (
	telegramIDPattern = regexp.MustCompile(`/(\d+)$`)

	conferencePositive = regexp.MustCompile(`(?i)` + strings.Join([]string{
		wordStart + `конференц`,
		wordStart + `(?:воркшоп|workshop)` + wordEnd,
		wordStart + `(?:симпозиум|symposium)` + wordEnd,
		wordStart + `форум` + wordEnd,
		wordStart + `cfp` + wordEnd,
		`call for papers|call for abstracts|paper submission|abstract submission`,
	}, "|"))

	conferenceNegative = regexp.MustCompile(`(?i)` + strings.Join([]string{
		wordStart + `семинары?` + wordEnd,
		wordStart + `научн(?:ый|ые)\s+семинар`,
		wordStart + `лекци[яи]` + wordEnd,
		wordStart + `(?:вебинар|webinar)` + wordEnd,
		wordStart + `мастер-?класс` + wordEnd,
		wordStart + `курс` + wordEnd,
		wordStart + `(?:хакатон|hackathon)` + wordEnd,
		wordStart + `конкурс` + wordEnd,
		wordStart + `(?:стипенди[яи]|грант)` + wordEnd,
		wordStart + `ваканси[яи]` + wordEnd,
		wordStart + `новост[ьи]` + wordEnd,
		wordStart + `нобелев`,
	}, "|"))

	dateHint = regexp.MustCompile(`(?i)` + wordStart +
		`(?:\d{1,2}[./]\d{1,2}(?:[./]\d{2,4})?|\d{1,2}\s+[а-яё]+(?:\s+\d{4})?)` + wordEnd)
)

type telegramMessage struct {
	ID       int
	Text     string
	Datetime string
	Link     string
}

// Telegram walks the public web preview of a channel from newest to oldest
// using the "before" cursor and keeps conference announcements.
type Telegram struct {
	fetcher     *Fetcher
	baseURL     string
	channel     string
	maxMessages int
	pageDelay   time.Duration
}

func NewTelegram(fetcher *Fetcher, baseURL, channel string, maxMessages int, pageDelay time.Duration) *Telegram {
	return &Telegram{
		fetcher:     fetcher,
		baseURL:     strings.TrimRight(baseURL, "/"),
		channel:     strings.TrimPrefix(channel, "@"),
		maxMessages: maxMessages,
		pageDelay:   pageDelay,
	}
}

func (t *Telegram) Name() string {
	return TelegramName
}

func (t *Telegram) Run(ctx context.Context) ([]record.Record, error) {
	messages, err := t.collect(ctx)
	if err != nil {
		return nil, err
	}

	var records []record.Record
	for _, m := range messages {
		if !isConferencePost(m.Text) {
			continue
		}

		title, _, _ := strings.Cut(m.Text, "\n")
		records = append(records, record.Record{
			Source:    TelegramName,
			OriginURL: m.Link,
			Title:     truncateRunes(strings.TrimSpace(title), telegramTitleLimit),
			DateText:  m.Datetime,
			Details:   m.Text,
			URLs:      record.Unique(append([]string{m.Link}, record.ExtractURLs(m.Text)...)),
			Emails:    record.Unique(record.ExtractEmails(m.Text)),
		})
	}

	slog.Debug("Channel walk finished", "source", TelegramName, "messages", len(messages), "records", len(records))

	return records, nil
}

// collect pages backwards until the cap is reached or a page brings no
// unseen message. Only ids below the cursor are accepted and each page is
// sorted newest first, so the cursor strictly decreases.
func (t *Telegram) collect(ctx context.Context) ([]telegramMessage, error) {
	var collected []telegramMessage
	seen := make(map[int]struct{})
	cursor := 0

	for page := 0; len(collected) < t.maxMessages; page++ {
		if page > 0 {
			if err := sleepContext(ctx, t.pageDelay); err != nil {
				return nil, err
			}
		}

		fetched, err := t.fetcher.Get(ctx, t.pageURL(cursor))
		if err != nil {
			return nil, err
		}

		pageMessages, err := parseTelegramPage(fetched.Body)
		if err != nil {
			return nil, err
		}
		if len(pageMessages) == 0 {
			break
		}

		sort.Slice(pageMessages, func(i, j int) bool {
			return pageMessages[i].ID > pageMessages[j].ID
		})

		added := 0
		for _, m := range pageMessages {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			if cursor > 0 && m.ID >= cursor {
				continue
			}
			seen[m.ID] = struct{}{}
			collected = append(collected, m)
			added++
		}
		if added == 0 {
			break
		}

		cursor = pageMessages[len(pageMessages)-1].ID
	}

	if len(collected) > t.maxMessages {
		collected = collected[:t.maxMessages]
	}
	return collected, nil
}

func (t *Telegram) pageURL(before int) string {
	u := fmt.Sprintf("%s/%s", t.baseURL, t.channel)
	if before > 0 {
		u += "?before=" + strconv.Itoa(before)
	}
	return u
}

func parseTelegramPage(body []byte) ([]telegramMessage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse channel page: %w", err)
	}

	var messages []telegramMessage
	doc.Find(".tgme_widget_message_wrap").Each(func(_ int, wrap *goquery.Selection) {
		link := strings.TrimSpace(wrap.Find("a.tgme_widget_message_date[href]").First().AttrOr("href", ""))
		m := telegramIDPattern.FindStringSubmatch(link)
		if m == nil {
			return
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return
		}

		messages = append(messages, telegramMessage{
			ID:       id,
			Text:     nodeText(wrap.Find(".tgme_widget_message_text").First(), "\n"),
			Datetime: wrap.Find("time[datetime]").First().AttrOr("datetime", ""),
			Link:     link,
		})
	})

	return messages, nil
}

func isConferencePost(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if conferenceNegative.MatchString(text) {
		return false
	}
	return conferencePositive.MatchString(text) && dateHint.MatchString(text)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
