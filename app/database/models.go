package database

import (
	"time"

	"github.com/lysyi3m/cfp-comb/app/record"
)

// TimestampLayout is the fetched_at format: UTC, second precision, "Z" suffix.
const TimestampLayout = "2006-01-02T15:04:05Z"

// StoredRecord is a row of the items table.
type StoredRecord struct {
	ID          int64
	Record      record.Record
	FetchedAt   time.Time
	Fingerprint string
}

// UpsertResult reports the outcome of one batch upsert. Inserted holds the
// records that were new, in input order.
type UpsertResult struct {
	InsertedCount int
	SkippedCount  int
	Inserted      []record.Record
}

// SourceCount is the number of stored rows produced by one source.
type SourceCount struct {
	Source string
	Count  int
}
