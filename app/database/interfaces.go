package database

import (
	"context"
	"time"

	"github.com/lysyi3m/cfp-comb/app/record"
)

type Repository interface {
	Upsert(ctx context.Context, records []record.Record) (UpsertResult, error)

	List(ctx context.Context, source string, limit int) ([]StoredRecord, error)
	Count(ctx context.Context) (int, error)
	CountBySource(ctx context.Context) ([]SourceCount, error)
	LatestFetchedAt(ctx context.Context) (*time.Time, error)
}
