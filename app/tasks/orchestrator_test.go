package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/lysyi3m/cfp-comb/app/database"
	"github.com/lysyi3m/cfp-comb/app/metrics"
	"github.com/lysyi3m/cfp-comb/app/record"
	"github.com/lysyi3m/cfp-comb/app/source"
)

type fakeAdapter struct {
	name    string
	records []record.Record
	err     error
	panics  bool
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func (a *fakeAdapter) Name() string {
	return a.name
}

func (a *fakeAdapter) Run(ctx context.Context) ([]record.Record, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()

	if a.release != nil {
		select {
		case <-a.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.panics {
		panic("unexpected markup")
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.records, nil
}

func (a *fakeAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type failingRepository struct {
	database.Repository
}

func (failingRepository) Upsert(ctx context.Context, records []record.Record) (database.UpsertResult, error) {
	return database.UpsertResult{}, errors.New("disk I/O error")
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewConnection(filepath.Join(t.TempDir(), "data", "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rec(source, title string) record.Record {
	return record.Record{
		Source:    source,
		OriginURL: "http://" + source,
		Title:     title,
		URLs:      []string{"http://" + source + "/" + title},
		Emails:    []string{},
	}
}

func TestOrchestratorIsolatesFailingAdapters(t *testing.T) {
	tests := []struct {
		name   string
		middle *fakeAdapter
		errMsg string
	}{
		{"error", &fakeAdapter{name: "b", err: errors.New("HTTP 503 Service Unavailable")}, "HTTP 503"},
		{"panic", &fakeAdapter{name: "b", panics: true}, "adapter panicked: unexpected markup"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			first := &fakeAdapter{name: "a", records: []record.Record{rec("a", "One"), rec("a", "Two")}}
			last := &fakeAdapter{name: "c", records: []record.Record{rec("c", "Three")}}

			o := NewOrchestrator(db, database.NewRecordRepository(db), []source.Adapter{first, tt.middle, last},
				OrchestratorConfig{}, metrics.New(), discardLogger())

			summary, err := o.Run(context.Background(), "run-1")
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}

			if summary.Inserted != 3 || summary.Skipped != 0 {
				t.Errorf("Expected 3 inserted and 0 skipped, got %d/%d", summary.Inserted, summary.Skipped)
			}
			if last.Calls() != 1 {
				t.Errorf("Expected adapter after the failing one to run")
			}
			if len(summary.Adapters) != 3 {
				t.Fatalf("Expected 3 adapter reports, got %d", len(summary.Adapters))
			}
			if !summary.Adapters[0].OK || summary.Adapters[1].OK || !summary.Adapters[2].OK {
				t.Errorf("Expected only the middle adapter to fail, got %+v", summary.Adapters)
			}
			if !strings.Contains(summary.Adapters[1].Error, tt.errMsg) {
				t.Errorf("Expected error text '%s', got '%s'", tt.errMsg, summary.Adapters[1].Error)
			}

			count, err := database.NewRecordRepository(db).Count(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if count != 3 {
				t.Errorf("Expected 3 stored records, got %d", count)
			}
		})
	}
}

func TestOrchestratorSecondRunSkipsEverything(t *testing.T) {
	db := newTestDB(t)
	adapter := &fakeAdapter{name: "a", records: []record.Record{rec("a", "One"), rec("a", "One"), rec("a", "Two")}}
	o := NewOrchestrator(db, database.NewRecordRepository(db), []source.Adapter{adapter}, OrchestratorConfig{}, nil, discardLogger())

	first, err := o.Run(context.Background(), "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if first.Inserted != 2 || first.Skipped != 1 {
		t.Errorf("Expected 2 inserted and 1 skipped, got %d/%d", first.Inserted, first.Skipped)
	}

	second, err := o.Run(context.Background(), "run-2")
	if err != nil {
		t.Fatal(err)
	}
	if second.Inserted != 0 || second.Skipped != 3 {
		t.Errorf("Expected 0 inserted and 3 skipped, got %d/%d", second.Inserted, second.Skipped)
	}

	if last := o.LastSummary(); last == nil || last.RunID != "run-2" {
		t.Errorf("Expected last summary of run-2, got %+v", last)
	}
}

func TestOrchestratorExportsOnlyNewRecords(t *testing.T) {
	db := newTestDB(t)
	csvPath := filepath.Join(t.TempDir(), "out", "new_items.csv")
	adapter := &fakeAdapter{name: "a", records: []record.Record{rec("a", "One"), rec("a", "Two")}}

	o := NewOrchestrator(db, database.NewRecordRepository(db), []source.Adapter{adapter},
		OrchestratorConfig{CSVEnabled: true, CSVPath: csvPath}, nil, discardLogger())

	if _, err := o.Run(context.Background(), "run-1"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(data), "\r\n"); lines != 3 {
		t.Errorf("Expected header and 2 rows, got %d lines", lines)
	}

	summary, err := o.Run(context.Background(), "run-2")
	if err != nil {
		t.Fatal(err)
	}
	if !summary.Exported {
		t.Errorf("Expected export on a run without new records")
	}
	data, err = os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(data), "\r\n"); lines != 1 {
		t.Errorf("Expected only the header after a run without new records, got %d lines", lines)
	}
}

func TestOrchestratorStorageErrorIsReturned(t *testing.T) {
	db := newTestDB(t)
	csvPath := filepath.Join(t.TempDir(), "new_items.csv")
	adapter := &fakeAdapter{name: "a", records: []record.Record{rec("a", "One")}}

	o := NewOrchestrator(db, failingRepository{}, []source.Adapter{adapter},
		OrchestratorConfig{CSVEnabled: true, CSVPath: csvPath}, nil, discardLogger())

	summary, err := o.Run(context.Background(), "run-1")
	if err == nil {
		t.Fatal("Expected storage error")
	}
	if !strings.Contains(err.Error(), "disk I/O error") {
		t.Errorf("Expected wrapped storage error, got: %v", err)
	}
	if summary.Error == "" {
		t.Errorf("Expected error recorded in summary")
	}
	if _, statErr := os.Stat(csvPath); !os.IsNotExist(statErr) {
		t.Errorf("Expected no export after a storage error")
	}
}

func TestRunCycleTaskExecute(t *testing.T) {
	db := newTestDB(t)
	adapter := &fakeAdapter{name: "a", records: []record.Record{rec("a", "One")}}
	o := NewOrchestrator(db, database.NewRecordRepository(db), []source.Adapter{adapter}, OrchestratorConfig{}, nil, discardLogger())

	task := NewRunCycleTask(o)
	if task.GetType() != TaskTypeRunCycle {
		t.Errorf("Expected type '%s', got '%s'", TaskTypeRunCycle, task.GetType())
	}
	if task.GetID() == "" {
		t.Errorf("Expected generated task ID")
	}

	task.Start()
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if task.Summary == nil || task.Summary.RunID != task.GetID() || task.Summary.Inserted != 1 {
		t.Errorf("Expected summary for run %s with 1 insert, got %+v", task.GetID(), task.Summary)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewRunCycleTask(o).Execute(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}
