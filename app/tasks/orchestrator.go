package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/cfp-comb/app/database"
	"github.com/lysyi3m/cfp-comb/app/export"
	"github.com/lysyi3m/cfp-comb/app/metrics"
	"github.com/lysyi3m/cfp-comb/app/record"
	"github.com/lysyi3m/cfp-comb/app/source"
)

// AdapterReport is the outcome of one adapter within a cycle.
type AdapterReport struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
}

// CycleSummary is the outcome of one collection cycle.
type CycleSummary struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Fetched    int             `json:"fetched"`
	Inserted   int             `json:"inserted"`
	Skipped    int             `json:"skipped"`
	Exported   bool            `json:"exported"`
	Adapters   []AdapterReport `json:"adapters"`
	Error      string          `json:"error,omitempty"`
}

type OrchestratorConfig struct {
	CSVEnabled bool
	CSVPath    string
}

// Orchestrator runs every adapter in order, stores the union of their
// records and exports what was new. One failing adapter never stops the
// others.
type Orchestrator struct {
	db       *database.DB
	repo     database.Repository
	adapters []source.Adapter
	config   OrchestratorConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu   sync.Mutex
	last *CycleSummary
}

func NewOrchestrator(db *database.DB, repo database.Repository, adapters []source.Adapter,
	config OrchestratorConfig, m *metrics.Metrics, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		db:       db,
		repo:     repo,
		adapters: adapters,
		config:   config,
		metrics:  m,
		logger:   logger,
	}
}

// Adapters returns the names of the configured adapters in run order.
func (o *Orchestrator) Adapters() []string {
	names := make([]string, 0, len(o.adapters))
	for _, a := range o.adapters {
		names = append(names, a.Name())
	}
	return names
}

// LastSummary returns the most recently finished cycle, or nil.
func (o *Orchestrator) LastSummary() *CycleSummary {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return nil
	}
	summary := *o.last
	summary.Adapters = append([]AdapterReport(nil), o.last.Adapters...)
	return &summary
}

// Run executes one cycle. Errors are returned only for store and export
// failures; adapter failures are reported in the summary.
func (o *Orchestrator) Run(ctx context.Context, runID string) (*CycleSummary, error) {
	summary := &CycleSummary{RunID: runID, StartedAt: time.Now().UTC()}
	logger := o.logger.With("run_id", runID)

	err := o.run(ctx, logger, summary)

	summary.FinishedAt = time.Now().UTC()
	if err != nil {
		summary.Error = err.Error()
	}
	if o.metrics != nil {
		o.metrics.ObserveCycle(summary.FinishedAt.Sub(summary.StartedAt))
	}

	o.mu.Lock()
	o.last = summary
	o.mu.Unlock()

	return summary, err
}

func (o *Orchestrator) run(ctx context.Context, logger *slog.Logger, summary *CycleSummary) error {
	if _, _, err := database.RunMigrations(o.db); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	var all []record.Record
	for _, adapter := range o.adapters {
		records, err := o.runAdapter(ctx, adapter)

		report := AdapterReport{Name: adapter.Name(), OK: err == nil, Records: len(records)}
		if err != nil {
			report.Error = err.Error()
			logger.Error("Source failed", "source", adapter.Name(), "error", err)
		} else {
			logger.Info("Source completed", "source", adapter.Name(), "records", len(records))
			all = append(all, records...)
		}
		summary.Adapters = append(summary.Adapters, report)

		if o.metrics != nil {
			o.metrics.ObserveAdapter(adapter.Name(), err, len(records))
		}
	}
	summary.Fetched = len(all)

	result, err := o.repo.Upsert(ctx, all)
	if err != nil {
		return fmt.Errorf("failed to store records: %w", err)
	}
	summary.Inserted = result.InsertedCount
	summary.Skipped = result.SkippedCount

	if o.metrics != nil {
		o.metrics.ObserveStore(result.InsertedCount, result.SkippedCount)
	}

	logger.Info("Records stored", "fetched", len(all), "inserted", result.InsertedCount, "skipped", result.SkippedCount)

	if o.config.CSVEnabled {
		if err := export.WriteCSV(o.config.CSVPath, result.Inserted); err != nil {
			return fmt.Errorf("failed to export records: %w", err)
		}
		summary.Exported = true
		logger.Info("CSV written", "path", o.config.CSVPath, "rows", len(result.Inserted))
	}

	return nil
}

// runAdapter isolates one adapter, turning a panic into an error.
func (o *Orchestrator) runAdapter(ctx context.Context, adapter source.Adapter) (records []record.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = fmt.Errorf("adapter panicked: %v", r)
		}
	}()

	return adapter.Run(ctx)
}
