package api

import (
	"time"

	"github.com/lysyi3m/cfp-comb/app/database"
	"github.com/lysyi3m/cfp-comb/app/feed"
	"github.com/lysyi3m/cfp-comb/app/tasks"
)

type GeneratorInterface interface {
	Run(records []database.StoredRecord) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

var _ tasks.RunTrigger = (*tasks.Scheduler)(nil)

type Handler struct {
	repo      database.Repository
	generator GeneratorInterface
	runs      tasks.RunTrigger
	sources   []string
}

// recordResponse mirrors the CSV columns plus the storage metadata.
type recordResponse struct {
	ID          int64     `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	FetchedAt   time.Time `json:"fetched_at"`
	Parser      string    `json:"parser"`
	SourceURL   string    `json:"source_url"`
	Title       string    `json:"title"`
	DateRaw     string    `json:"date_raw"`
	Details     string    `json:"details"`
	URLs        []string  `json:"urls"`
	Emails      []string  `json:"emails"`
}

func newRecordResponse(stored database.StoredRecord) recordResponse {
	rec := stored.Record
	return recordResponse{
		ID:          stored.ID,
		Fingerprint: stored.Fingerprint,
		FetchedAt:   stored.FetchedAt,
		Parser:      rec.Source,
		SourceURL:   rec.OriginURL,
		Title:       rec.Title,
		DateRaw:     rec.DateText,
		Details:     rec.Details,
		URLs:        nonNil(rec.URLs),
		Emails:      nonNil(rec.Emails),
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
