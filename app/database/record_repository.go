package database

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/cfp-comb/app/record"
)

var _ Repository = (*RecordRepository)(nil)

// RecordRepository persists records keyed by their fingerprint.
type RecordRepository struct {
	db  *DB
	now func() time.Time
}

func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db, now: time.Now}
}

// Upsert inserts every record whose fingerprint is not stored yet. The
// unique index decides what is a duplicate, including duplicates within
// the batch. The batch is one transaction: on any storage error nothing
// from it is kept.
func (r *RecordRepository) Upsert(ctx context.Context, records []record.Record) (UpsertResult, error) {
	result := UpsertResult{Inserted: []record.Record{}}
	if len(records) == 0 {
		return result, nil
	}

	fetchedAt := r.now().UTC().Format(TimestampLayout)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO items (
			parser, source_url, title, date_raw, details,
			urls_json, emails_json, fetched_at, content_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO NOTHING
	`)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		urlsJSON, err := encodeList(rec.URLs)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("failed to encode urls of %q: %w", rec.Title, err)
		}
		emailsJSON, err := encodeList(rec.Emails)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("failed to encode emails of %q: %w", rec.Title, err)
		}

		res, err := stmt.ExecContext(ctx,
			rec.Source, rec.OriginURL, nullString(rec.Title), nullString(rec.DateText), nullString(rec.Details),
			urlsJSON, emailsJSON, fetchedAt, record.Fingerprint(rec))
		if err != nil {
			return UpsertResult{}, fmt.Errorf("failed to insert record from %s: %w", rec.Source, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return UpsertResult{}, fmt.Errorf("failed to read rows affected: %w", err)
		}

		if affected == 1 {
			result.InsertedCount++
			result.Inserted = append(result.Inserted, rec)
		} else {
			result.SkippedCount++
		}
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

// List returns stored rows newest first, optionally for one source only.
func (r *RecordRepository) List(ctx context.Context, source string, limit int) ([]StoredRecord, error) {
	query := `
		SELECT id, parser, source_url, COALESCE(title, ''), COALESCE(date_raw, ''), COALESCE(details, ''),
			urls_json, emails_json, fetched_at, COALESCE(content_hash, '')
		FROM items`
	var args []any

	if source != "" {
		query += ` WHERE parser = ?`
		args = append(args, source)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var stored []StoredRecord
	for rows.Next() {
		var (
			s                    StoredRecord
			urlsJSON, emailsJSON string
			fetchedAt            string
		)
		err := rows.Scan(&s.ID, &s.Record.Source, &s.Record.OriginURL, &s.Record.Title, &s.Record.DateText,
			&s.Record.Details, &urlsJSON, &emailsJSON, &fetchedAt, &s.Fingerprint)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		if s.Record.URLs, err = decodeList(urlsJSON); err != nil {
			return nil, fmt.Errorf("failed to decode urls of record %d: %w", s.ID, err)
		}
		if s.Record.Emails, err = decodeList(emailsJSON); err != nil {
			return nil, fmt.Errorf("failed to decode emails of record %d: %w", s.ID, err)
		}
		if s.FetchedAt, err = time.Parse(TimestampLayout, fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to parse fetched_at of record %d: %w", s.ID, err)
		}

		stored = append(stored, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return stored, nil
}

func (r *RecordRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

func (r *RecordRepository) CountBySource(ctx context.Context) ([]SourceCount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT parser, COUNT(*) FROM items GROUP BY parser ORDER BY parser`)
	if err != nil {
		return nil, fmt.Errorf("failed to count records by source: %w", err)
	}
	defer rows.Close()

	var counts []SourceCount
	for rows.Next() {
		var c SourceCount
		if err := rows.Scan(&c.Source, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan source count: %w", err)
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

// LatestFetchedAt returns the newest ingestion time, or nil for an empty store.
func (r *RecordRepository) LatestFetchedAt(ctx context.Context) (*time.Time, error) {
	var latest sql.NullString
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(fetched_at) FROM items`).Scan(&latest); err != nil {
		return nil, fmt.Errorf("failed to query latest fetch time: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}

	t, err := time.Parse(TimestampLayout, latest.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse latest fetch time: %w", err)
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// encodeList writes a JSON array without HTML escaping so stored text stays
// readable.
func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(values); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func decodeList(s string) ([]string, error) {
	var values []string
	if s == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(s), &values); err != nil {
		return nil, err
	}
	return values, nil
}
